package ports

import (
	"context"
	"time"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric, e.g. draw flags raised.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric, e.g. the number
	// of breaking teams in a category.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, e.g. the allocation
	// objective.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// Operation identifies one engine run for observation.
type Operation struct {
	// Name is the operation, e.g. "draw", "allocate" or "break".
	Name         string
	TournamentID string

	// Round is zero for operations not tied to a round.
	Round int
}

// OperationReport is what an observed operation reports on completion.
type OperationReport struct {
	Err error

	// Gauges are recorded as current values, e.g. "pairings".
	Gauges map[string]float64

	// Counters are added to running totals, e.g. one entry per draw flag.
	Counters map[string]float64
}

// OperationObserver traces and measures engine runs.
type OperationObserver interface {
	// Begin starts observing op. The returned context carries any trace
	// span; the returned function must be called exactly once with the
	// outcome.
	Begin(ctx context.Context, op Operation) (context.Context, func(OperationReport))
}

// Task is an observed unit of work. It returns what should be reported
// about the run alongside its error.
type Task func(ctx context.Context) (OperationReport, error)

// OperationGuard runs engine operations under concurrency rules.
type OperationGuard interface {
	// Exclusive runs task unless op is already running, in which case it
	// fails with domain.ErrOperationInProgress.
	Exclusive(ctx context.Context, op Operation, task Task) error

	// Serialize waits for any running op to finish and then runs task.
	Serialize(ctx context.Context, op Operation, task Task) error
}
