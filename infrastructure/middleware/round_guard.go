package middleware

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ahrav/go-tabroom/internal/domain"
	"github.com/ahrav/go-tabroom/internal/ports"
)

var _ ports.OperationGuard = (*RoundGuard)(nil)

// RoundGuard keeps at most one instance of each operation running per
// tournament round and wraps every run in an observer. It holds one
// semaphore per operation key and no other shared state.
type RoundGuard struct {
	mu    sync.Mutex
	slots map[ports.Operation]*semaphore.Weighted

	// observer provides optional tracing and metrics hooks.
	observer ports.OperationObserver

	// metrics counts rejected operations; optional.
	metrics ports.MetricsCollector
}

// NewRoundGuard creates a RoundGuard. Both arguments may be nil.
func NewRoundGuard(observer ports.OperationObserver, metrics ports.MetricsCollector) *RoundGuard {
	return &RoundGuard{
		slots:    make(map[ports.Operation]*semaphore.Weighted),
		observer: observer,
		metrics:  metrics,
	}
}

func (g *RoundGuard) slot(op ports.Operation) *semaphore.Weighted {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[op]
	if !ok {
		s = semaphore.NewWeighted(1)
		g.slots[op] = s
	}
	return s
}

// Exclusive runs task unless the same operation is already running for the
// same round, in which case it fails fast with domain.ErrOperationInProgress.
func (g *RoundGuard) Exclusive(ctx context.Context, op ports.Operation, task ports.Task) error {
	s := g.slot(op)
	if !s.TryAcquire(1) {
		if g.metrics != nil {
			g.metrics.RecordCounter(MetricOperationRejects, 1, map[string]string{
				"tournament": op.TournamentID,
				"operation":  op.Name,
			})
		}
		return fmt.Errorf("%s for round %d of %s: %w", op.Name, op.Round, op.TournamentID, domain.ErrOperationInProgress)
	}
	defer s.Release(1)
	return g.observe(ctx, op, task)
}

// Serialize waits until no other run of op is in progress and then runs
// task. It gives up when ctx is done.
func (g *RoundGuard) Serialize(ctx context.Context, op ports.Operation, task ports.Task) error {
	s := g.slot(op)
	if err := s.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for %s: %w", op.Name, err)
	}
	defer s.Release(1)
	return g.observe(ctx, op, task)
}

func (g *RoundGuard) observe(ctx context.Context, op ports.Operation, task ports.Task) error {
	if g.observer == nil {
		_, err := task(ctx)
		return err
	}
	ctx, end := g.observer.Begin(ctx, op)
	rep, err := task(ctx)
	rep.Err = err
	end(rep)
	return err
}
