// Package pipeline runs a forcing job: it steps through the schedule, queries
// the engine for every step on a bounded worker pool, writes each step and
// announces it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/storm-wind-forcing/internal/domain"
	"github.com/couchcryptid/storm-wind-forcing/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Forcer computes surface forcing at targets for time t.
type Forcer interface {
	Query(ctx context.Context, t time.Time, targets []domain.Point) ([]domain.Forcing, error)
}

// StepWriter persists the forcing of one step to file.
type StepWriter interface {
	WriteStep(ctx context.Context, file string, forcing []domain.Forcing) error
}

// Publisher announces a written step.
type Publisher interface {
	Publish(ctx context.Context, event domain.StepEvent) error
}

const publishAttempts = 3

// Pipeline orchestrates the query-write-publish loop over a schedule.
type Pipeline struct {
	forcer    Forcer
	writer    StepWriter
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	workers   int
	runID     string
	ready     atomic.Bool
	running   atomic.Bool
	total     atomic.Int64
	written   atomic.Int64

	publishBackoff time.Duration
}

// New creates a Pipeline. A nil publisher disables step announcements.
func New(f Forcer, w StepWriter, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, workers int, runID string) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		forcer:         f,
		writer:         w,
		publisher:      pub,
		logger:         logger,
		metrics:        metrics,
		workers:        workers,
		runID:          runID,
		publishBackoff: 200 * time.Millisecond,
	}
}

// CheckReadiness returns nil once the pipeline has written at least one step.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not written any steps yet")
	}
	return nil
}

// Written returns the number of steps written so far.
func (p *Pipeline) Written() int { return int(p.written.Load()) }

// Progress reports how far the current run has got.
func (p *Pipeline) Progress() domain.RunProgress {
	return domain.RunProgress{
		RunID:   p.runID,
		Steps:   int(p.total.Load()),
		Written: int(p.written.Load()),
		Running: p.running.Load(),
	}
}

// Run executes every step of sched against targets. The first failing step
// cancels the remaining ones and its error is returned.
func (p *Pipeline) Run(ctx context.Context, sched Schedule, targets []domain.Point) error {
	steps, err := sched.Steps()
	if err != nil {
		return err
	}

	p.logger.Info("run started",
		"run_id", p.runID,
		"steps", len(steps),
		"targets", len(targets),
		"workers", p.workers,
		"start", sched.Start,
	)
	p.total.Store(int64(len(steps)))
	p.running.Store(true)
	p.metrics.RunRunning.Set(1)
	defer func() {
		p.running.Store(false)
		p.metrics.RunRunning.Set(0)
	}()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, step := range steps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return p.runStep(gctx, step, targets)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.logger.Info("run finished",
		"run_id", p.runID,
		"steps", len(steps),
		"duration", time.Since(start),
	)
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step Step, targets []domain.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	forcing, err := p.forcer.Query(ctx, step.Time, targets)
	if err != nil {
		p.metrics.StepErrors.Inc()
		return fmt.Errorf("step %d at %s: %w", step.Index, step.Time.UTC().Format(time.RFC3339), err)
	}
	if err := p.writer.WriteStep(ctx, step.File, forcing); err != nil {
		p.metrics.StepErrors.Inc()
		return fmt.Errorf("step %d: %w", step.Index, err)
	}

	p.metrics.StepsCompleted.Inc()
	p.metrics.StepDuration.Observe(time.Since(start).Seconds())
	p.written.Add(1)
	p.ready.Store(true)

	event := domain.NewStepEvent(p.runID, step.Index, step.Time, step.File, forcing)
	p.logger.Debug("step written",
		"step", step.Index,
		"time", step.Time,
		"file", step.File,
		"max_stress", event.Summary.MaxStress,
		"min_pressure_pa", event.Summary.MinPressurePa,
	)
	p.publish(ctx, event)
	return nil
}

// publish announces event with bounded retries. Failures are logged and do
// not fail the step.
func (p *Pipeline) publish(ctx context.Context, event domain.StepEvent) {
	if p.publisher == nil {
		return
	}
	backoff := p.publishBackoff
	for attempt := 1; ; attempt++ {
		err := p.publisher.Publish(ctx, event)
		if err == nil {
			p.metrics.StepsPublished.Inc()
			return
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			p.logger.Warn("step event not published",
				"step", event.Step,
				"attempts", attempt,
				"error", err,
			)
			return
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, 5*time.Second)
	}
}
