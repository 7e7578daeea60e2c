package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pixperk/peterson/pkg/harness"
	"github.com/pixperk/peterson/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type options struct {
	target         int
	runs           int
	checkOccupancy bool
	dataDir        string
	metricsAddr    string
	trace          bool
	logLevel       string
	list           bool
}

func main() {
	var opts options
	flag.IntVar(&opts.target, "target", harness.DefaultTarget, "Increments per participant")
	flag.IntVar(&opts.runs, "runs", 1, "Number of harness runs")
	flag.BoolVar(&opts.checkOccupancy, "check-occupancy", false, "Count overlapping critical sections")
	flag.StringVar(&opts.dataDir, "data-dir", "", "Directory for run history (disabled if empty)")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Prometheus metrics address (disabled if empty)")
	flag.BoolVar(&opts.trace, "trace", false, "Print run spans to stdout")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	flag.BoolVar(&opts.list, "list", false, "Print the run history in -data-dir and exit")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "peterson",
		Level: hclog.LevelFromString(opts.logLevel),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if opts.list {
		err = list(os.Stdout, opts.dataDir)
	} else {
		err = run(ctx, opts, logger)
	}
	if err != nil {
		logger.Error("failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger hclog.Logger) error {
	if opts.runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", opts.runs)
	}

	logger.Info("starting peterson harness",
		"target", opts.target,
		"runs", opts.runs,
		"check_occupancy", opts.checkOccupancy,
		"data_dir", opts.dataDir,
		"metrics_addr", opts.metricsAddr)

	if opts.trace {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		otel.SetTracerProvider(tp)
	}

	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: promhttp.Handler()}
		go func() {
			logger.Info("metrics listening", "addr", opts.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var history *storage.BoltDBStorage
	if opts.dataDir != "" {
		var err error
		history, err = storage.NewBoltDBStorage(opts.dataDir)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer history.Close()
	}

	failed := 0
	for i := 0; i < opts.runs; i++ {
		report, err := harness.Run(ctx, harness.Config{
			Target:         opts.target,
			CheckOccupancy: opts.checkOccupancy,
			Logger:         logger.Named("harness"),
		})
		if report != nil {
			fmt.Printf("num: %d\n", report.Counter)

			if history != nil {
				if serr := history.Save(report); serr != nil {
					logger.Warn("failed to save run", "run_id", report.RunID, "error", serr)
				}
			}
		}

		switch {
		case err == nil:
		case ctx.Err() != nil:
			return fmt.Errorf("interrupted after %d of %d runs: %w", i, opts.runs, err)
		case report == nil:
			return err
		default:
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runs violated mutual exclusion", failed, opts.runs)
	}

	logger.Info("all runs passed", "runs", opts.runs, "expected", 2*opts.target)
	return nil
}

// prints one line per stored run, oldest first
func list(w io.Writer, dataDir string) error {
	if dataDir == "" {
		return fmt.Errorf("-list requires -data-dir")
	}

	history, err := storage.NewBoltDBStorage(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer history.Close()

	reports, err := history.List()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	for _, r := range reports {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s  %s  %s  num: %d/%d  yields: %d/%d  %s\n",
			r.StartedAt.Format(time.RFC3339), r.RunID, status,
			r.Counter, r.Expected, r.Yields[0], r.Yields[1], r.Elapsed)
	}

	return nil
}
