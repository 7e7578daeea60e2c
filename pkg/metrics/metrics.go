package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusPassed    = "passed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

var (
	// lock acquisitions per participant
	// both identities should grow at the same rate in a harness run
	// labels: identity (first/second)
	AcquireTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peterson_acquire_total",
			Help: "total number of lock acquisitions",
		},
		[]string{"identity"},
	)

	// scheduler yields spent spinning in acquire
	// yields / acquisitions = how contended the lock was
	// labels: identity (first/second)
	SpinYieldTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peterson_spin_yield_total",
			Help: "total number of processor yields while waiting for the lock",
		},
		[]string{"identity"},
	)

	// harness runs by outcome
	// labels: status (passed/failed/cancelled)
	RunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peterson_run_total",
			Help: "total number of harness runs",
		},
		[]string{"status"},
	)

	// wall time of a full run (both participants joined)
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peterson_run_duration_seconds",
			Help:    "time taken by a harness run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)

	// final counter of the last run, should read 2 * target
	LastCounter = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "peterson_last_counter",
			Help: "final shared counter value of the last harness run",
		},
	)

	// overlapping critical sections seen by the occupancy check
	// anything above 0 is a memory ordering bug
	OccupancyViolationTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "peterson_occupancy_violation_total",
			Help: "total number of overlapping critical sections observed",
		},
	)
)
