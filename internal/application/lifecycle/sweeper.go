// Package lifecycle moves campaigns to completed or expired once their
// aggregates or deadline say so.
package lifecycle

import (
	"context"
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of campaigns loaded per query
const DefaultBatchSize = 200

// SweepResult counts what one sweep did
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Expired   int `json:"expired"`
	Failed    int `json:"failed"`
	// Skipped campaigns changed status between the read and the write
	Skipped int `json:"skipped"`
}

// Metrics receives sweep measurements
type Metrics interface {
	SweepFinished(ctx context.Context, result SweepResult, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) SweepFinished(context.Context, SweepResult, time.Duration) {}

// Sweeper evaluates every non-terminal campaign and persists status changes
// with a compare-and-set on the observed status. Running it twice in a row
// changes nothing the second time.
type Sweeper struct {
	campaignRepo   campaign.Repository
	eventPublisher shared.EventPublisher
	metrics        Metrics
	batchSize      int
	logger         *zap.Logger
}

// NewSweeper creates a new Sweeper
func NewSweeper(campaignRepo campaign.Repository, batchSize int, logger *zap.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		campaignRepo: campaignRepo,
		metrics:      noopMetrics{},
		batchSize:    batchSize,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher for status change events
func (s *Sweeper) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the sweep metrics sink
func (s *Sweeper) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Sweep scans pending and active campaigns in id order. A failure on one
// campaign is logged and counted; only a failed batch read aborts the sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()
	var result SweepResult
	after := uuid.Nil

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := s.campaignRepo.FindByStatuses(ctx, campaign.NonTerminalStatuses(), after, s.batchSize)
		if err != nil {
			s.logger.Error("lifecycle sweep batch failed",
				zap.String("after", after.String()),
				zap.Error(err),
			)
			return result, err
		}

		for i := range batch {
			s.evaluate(ctx, &batch[i], now, &result)
		}

		if len(batch) < s.batchSize {
			break
		}
		after = batch[len(batch)-1].ID
	}

	elapsed := time.Since(start)
	s.metrics.SweepFinished(ctx, result, elapsed)
	s.logger.Info("lifecycle sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("completed", result.Completed),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (s *Sweeper) evaluate(ctx context.Context, c *campaign.Campaign, now time.Time, result *SweepResult) {
	result.Scanned++
	observed := c.Status
	next := campaign.Evaluate(c, now)
	if next == observed {
		return
	}

	ok, err := s.campaignRepo.TransitionStatus(ctx, c.ID, observed, next, now)
	if err != nil {
		result.Failed++
		s.logger.Warn("lifecycle transition failed",
			zap.String("campaign_id", c.ID.String()),
			zap.String("from", string(observed)),
			zap.String("to", string(next)),
			zap.Error(err),
		)
		return
	}
	if !ok {
		result.Skipped++
		return
	}

	switch next {
	case campaign.StatusCompleted:
		result.Completed++
	case campaign.StatusExpired:
		result.Expired++
	}
	s.logger.Debug("campaign status changed by sweep",
		zap.String("campaign_id", c.ID.String()),
		zap.String("from", string(observed)),
		zap.String("to", string(next)),
	)

	if s.eventPublisher != nil {
		c.Status = next
		event := campaign.NewCampaignStatusChangedEvent(c, observed, next)
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish status change", zap.Error(err))
		}
	}
}
