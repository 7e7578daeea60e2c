// Package harness drives a Peterson lock with two competing goroutines and
// checks that no increment of the shared counter was lost.
package harness

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pixperk/peterson/pkg/metrics"
	"github.com/pixperk/peterson/pkg/peterson"
	"github.com/pixperk/peterson/pkg/time"
	"github.com/pixperk/peterson/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultTarget is the per-participant iteration count of the reference scenario.
const DefaultTarget = 4_000_000

// how many iterations a worker runs between context checks
const cancelCheckInterval = 1024

var tracer = otel.Tracer("github.com/pixperk/peterson/pkg/harness")

type Config struct {
	Target         int          //iterations per participant, may be 0
	CheckOccupancy bool         //count overlapping critical sections
	Logger         hclog.Logger //nil = discard
}

// run state shared by both workers
type run struct {
	lock    *peterson.Lock
	target  int
	check   bool
	counter int //guarded by lock, plain int

	occupancy  atomic.Int32
	violations atomic.Int64

	acquisitions [2]int //each slot written by its own worker only
	yields       [2]int
}

// Run spawns one goroutine per identity, each incrementing a shared counter
// Target times under a fresh lock, and joins them. It returns the report
// together with an error wrapping types.ErrLostUpdate or
// types.ErrMutualExclusion if the run broke an invariant.
//
// ctx is only consulted between iterations; a worker blocked in Acquire is
// never interrupted.
func Run(ctx context.Context, cfg Config) (*types.Report, error) {
	target := cfg.Target
	if target < 0 {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidTarget, target)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	ctx, span := tracer.Start(ctx, "harness.Run", trace.WithAttributes(
		attribute.String("peterson.run_id", runID),
		attribute.Int("peterson.target", target),
		attribute.Bool("peterson.check_occupancy", cfg.CheckOccupancy),
	))
	defer span.End()

	r := &run{
		lock:   peterson.New(),
		target: target,
		check:  cfg.CheckOccupancy,
	}

	logger.Debug("starting run", "target", target, "check_occupancy", cfg.CheckOccupancy)
	clock := time.NewClock()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range types.Identities {
		id := id
		g.Go(func() error {
			return r.work(gctx, id)
		})
	}
	err := g.Wait()

	elapsed := clock.Elapsed()
	metrics.RunDuration.Observe(elapsed.Seconds())

	report := &types.Report{
		RunID:               runID,
		StartedAt:           clock.StartedAt(),
		Target:              target,
		Counter:             r.counter,
		Expected:            2 * target,
		Acquisitions:        r.acquisitions,
		Yields:              r.yields,
		OccupancyChecked:    r.check,
		OccupancyViolations: int(r.violations.Load()),
		Elapsed:             elapsed,
	}
	r.record()

	span.SetAttributes(
		attribute.Int("peterson.counter", report.Counter),
		attribute.Int("peterson.yields.first", report.Yields[0]),
		attribute.Int("peterson.yields.second", report.Yields[1]),
	)

	if err != nil {
		metrics.RunTotal.WithLabelValues(metrics.StatusCancelled).Inc()
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("run cancelled", "error", err, "counter", report.Counter)
		return report, err
	}

	if err := verify(report); err != nil {
		metrics.RunTotal.WithLabelValues(metrics.StatusFailed).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("invariant violated", "error", err,
			"counter", report.Counter, "expected", report.Expected,
			"occupancy_violations", report.OccupancyViolations)
		return report, err
	}

	metrics.RunTotal.WithLabelValues(metrics.StatusPassed).Inc()
	logger.Info("run passed", "counter", report.Counter, "elapsed", elapsed,
		"yields_first", report.Yields[0], "yields_second", report.Yields[1])

	return report, nil
}

// one participant's loop
func (r *run) work(ctx context.Context, id types.Identity) error {
	self := id.Index()
	acquisitions, yields := 0, 0

	//publish the local tallies even when cancelled part way
	defer func() {
		r.acquisitions[self] = acquisitions
		r.yields[self] = yields
	}()

	for i := 0; i < r.target; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		yields += r.lock.AcquireSpin(id)
		acquisitions++

		if r.check {
			r.enter()
			r.counter++
			r.exit()
		} else {
			r.counter++
		}

		r.lock.Release(id)
	}

	return nil
}

func (r *run) enter() {
	if r.occupancy.Add(1) != 1 {
		r.violations.Add(1)
	}
}

func (r *run) exit() {
	r.occupancy.Add(-1)
}

// pushes the run's tallies into the process-wide collectors
func (r *run) record() {
	for _, id := range types.Identities {
		metrics.AcquireTotal.WithLabelValues(id.String()).Add(float64(r.acquisitions[id.Index()]))
		metrics.SpinYieldTotal.WithLabelValues(id.String()).Add(float64(r.yields[id.Index()]))
	}
	metrics.LastCounter.Set(float64(r.counter))
	metrics.OccupancyViolationTotal.Add(float64(r.violations.Load()))
}

// checks the two harness invariants of a finished run
func verify(report *types.Report) error {
	if report.OccupancyViolations > 0 {
		return fmt.Errorf("%w: %d overlapping critical sections",
			types.ErrMutualExclusion, report.OccupancyViolations)
	}
	if report.Counter != report.Expected {
		return fmt.Errorf("%w: num = %d, want %d",
			types.ErrLostUpdate, report.Counter, report.Expected)
	}
	return nil
}
