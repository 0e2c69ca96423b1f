// Package scheduler runs background jobs on a timer.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/donation/backend/internal/application/lifecycle"
	"github.com/donation/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrSweepInProgress is returned by RunNow while another sweep is running
var ErrSweepInProgress = errors.New("lifecycle sweep already in progress")

// Sweeper runs one lifecycle pass
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (lifecycle.SweepResult, error)
}

// SweepTriggerConfig holds configuration for the sweep trigger
type SweepTriggerConfig struct {
	Enabled bool
	// Interval between sweeps; the first sweep runs on Start
	Interval time.Duration
	// Timeout bounds a single sweep
	Timeout time.Duration
}

// DefaultSweepTriggerConfig returns default sweep trigger configuration
func DefaultSweepTriggerConfig() SweepTriggerConfig {
	return SweepTriggerConfig{
		Enabled:  true,
		Interval: 5 * time.Minute,
		Timeout:  2 * time.Minute,
	}
}

// SweepTrigger runs the lifecycle sweep on a ticker
type SweepTrigger struct {
	config  SweepTriggerConfig
	sweeper Sweeper
	logger  *zap.Logger
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	// sweepMu keeps scheduled and manual sweeps from overlapping
	sweepMu sync.Mutex
}

// NewSweepTrigger creates a new sweep trigger
func NewSweepTrigger(config SweepTriggerConfig, sweeper Sweeper, logger *zap.Logger) *SweepTrigger {
	def := DefaultSweepTriggerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepTrigger{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start starts the sweep loop
func (t *SweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	if !t.config.Enabled {
		t.mu.Unlock()
		t.logger.Info("Lifecycle sweep trigger is disabled")
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Lifecycle sweep trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("timeout", t.config.Timeout),
	)
	return nil
}

// Stop stops the loop and waits for a running sweep to finish
func (t *SweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Lifecycle sweep trigger stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Lifecycle sweep trigger stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (t *SweepTrigger) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// RunNow runs one sweep immediately unless one is already in progress
func (t *SweepTrigger) RunNow(ctx context.Context) (lifecycle.SweepResult, error) {
	if !t.sweepMu.TryLock() {
		return lifecycle.SweepResult{}, ErrSweepInProgress
	}
	defer t.sweepMu.Unlock()
	return t.sweep(ctx)
}

func (t *SweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	t.runScheduled(ctx)

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.runScheduled(ctx)
		}
	}
}

func (t *SweepTrigger) runScheduled(ctx context.Context) {
	t.sweepMu.Lock()
	defer t.sweepMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if _, err := t.sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Error("Scheduled lifecycle sweep failed", zap.Error(err))
	}
}

func (t *SweepTrigger) sweep(ctx context.Context) (result lifecycle.SweepResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	ctx, span := telemetry.StartServiceSpan(ctx, "lifecycle", "sweep")
	defer span.End()

	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("lifecycle_sweep"), func(ctx context.Context) {
		result, err = t.sweeper.Sweep(ctx, t.now())
	})
	telemetry.RecordError(span, err)
	span.SetAttributes(
		attribute.Int("sweep.scanned", result.Scanned),
		attribute.Int("sweep.completed", result.Completed),
		attribute.Int("sweep.expired", result.Expired),
	)
	return result, err
}
