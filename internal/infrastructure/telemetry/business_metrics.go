package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/donation/backend/internal/application/lifecycle"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics constructor gets no meter
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError is a metrics setup error
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// CampaignStatusCounter reports how many campaigns sit in each status
type CampaignStatusCounter interface {
	CampaignCountsByStatus(ctx context.Context) (map[string]int64, error)
}

// BusinessMetricsConfig configures NewBusinessMetrics
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
	// Campaigns feeds the campaigns-by-status gauge; nil disables collection
	Campaigns       CampaignStatusCounter
	CollectInterval time.Duration
}

// BusinessMetrics records donation ledger and campaign lifecycle activity.
// It satisfies the ledger and lifecycle metrics interfaces.
type BusinessMetrics struct {
	logger *zap.Logger

	donationsTotal       *Counter
	donationAmountTotal  *FloatCounter
	donationAmount       *Histogram
	donationsReplayed    *Counter
	ledgerRetries        *Counter
	paymentStatusChanges *Counter
	sweepRuns            *Counter
	sweepTransitions     *Counter
	sweepDuration        *Histogram
	campaignsByStatus    *Gauge

	campaigns       CampaignStatusCounter
	collectInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	startOnce       sync.Once
	wg              sync.WaitGroup
}

// NewBusinessMetrics creates every business instrument on cfg.Meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = time.Minute
	}

	bm := &BusinessMetrics{
		logger:          logger,
		campaigns:       cfg.Campaigns,
		collectInterval: interval,
		stopCh:          make(chan struct{}),
	}

	m := cfg.Meter
	var err error
	if bm.donationsTotal, err = NewCounter(m, "donation_recorded_total", "Donations recorded", "{donation}"); err != nil {
		return nil, err
	}
	if bm.donationAmountTotal, err = NewFloatCounter(m, "donation_amount_total", "Sum of recorded donation amounts", "{currency}"); err != nil {
		return nil, err
	}
	if bm.donationAmount, err = NewHistogram(m, HistogramOpts{
		Name:        "donation_amount",
		Description: "Distribution of donation amounts",
		Unit:        "{currency}",
		Boundaries:  DonationAmountBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.donationsReplayed, err = NewCounter(m, "donation_replayed_total", "Donation submissions answered from an earlier idempotent result", "{donation}"); err != nil {
		return nil, err
	}
	if bm.ledgerRetries, err = NewCounter(m, "donation_ledger_retry_total", "Ledger transactions retried after a conflict", "{retry}"); err != nil {
		return nil, err
	}
	if bm.paymentStatusChanges, err = NewCounter(m, "donation_payment_status_change_total", "Payment status transitions", "{change}"); err != nil {
		return nil, err
	}
	if bm.sweepRuns, err = NewCounter(m, "campaign_sweep_runs_total", "Lifecycle sweeps finished", "{run}"); err != nil {
		return nil, err
	}
	if bm.sweepTransitions, err = NewCounter(m, "campaign_sweep_transitions_total", "Campaigns moved by the lifecycle sweep", "{campaign}"); err != nil {
		return nil, err
	}
	if bm.sweepDuration, err = NewHistogram(m, HistogramOpts{
		Name:        "campaign_sweep_duration_seconds",
		Description: "Lifecycle sweep duration",
		Unit:        "s",
		Boundaries:  SweepDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.campaignsByStatus, err = NewGauge(m, "campaigns", "Campaigns per status", "{campaign}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// DonationRecorded counts a new donation and its amount
func (bm *BusinessMetrics) DonationRecorded(ctx context.Context, amount decimal.Decimal, method donation.PaymentMethod, status donation.PaymentStatus) {
	attrs := []attribute.KeyValue{AttrPaymentMethod.String(string(method)), AttrPaymentStatus.String(string(status))}
	bm.donationsTotal.Inc(ctx, attrs...)
	value := amount.InexactFloat64()
	bm.donationAmountTotal.Add(ctx, value, attrs...)
	bm.donationAmount.Record(ctx, value, AttrPaymentMethod.String(string(method)))
}

// DonationReplayed counts an idempotent replay
func (bm *BusinessMetrics) DonationReplayed(ctx context.Context) {
	bm.donationsReplayed.Inc(ctx)
}

// LedgerRetried counts a retried ledger transaction
func (bm *BusinessMetrics) LedgerRetried(ctx context.Context, operation string, _ int) {
	bm.ledgerRetries.Inc(ctx, AttrOperation.String(operation))
}

// PaymentStatusChanged counts a payment status transition
func (bm *BusinessMetrics) PaymentStatusChanged(ctx context.Context, from, to donation.PaymentStatus) {
	bm.paymentStatusChanges.Inc(ctx, AttrPaymentFrom.String(string(from)), AttrPaymentStatus.String(string(to)))
}

// SweepFinished records one lifecycle sweep. A sweep with failed campaigns
// is labelled partial.
func (bm *BusinessMetrics) SweepFinished(ctx context.Context, result lifecycle.SweepResult, elapsed time.Duration) {
	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial"
	}
	bm.sweepRuns.Inc(ctx, AttrOutcome.String(outcome))
	if result.Completed > 0 {
		bm.sweepTransitions.Add(ctx, int64(result.Completed), AttrCampaignStatus.String("completed"))
	}
	if result.Expired > 0 {
		bm.sweepTransitions.Add(ctx, int64(result.Expired), AttrCampaignStatus.String("expired"))
	}
	bm.sweepDuration.RecordDuration(ctx, elapsed, AttrOutcome.String(outcome))
}

// StartCollection samples campaigns per status on an interval until Stop
func (bm *BusinessMetrics) StartCollection(ctx context.Context) {
	if bm.campaigns == nil {
		return
	}
	bm.startOnce.Do(func() {
		bm.wg.Add(1)
		go func() {
			defer bm.wg.Done()
			ticker := time.NewTicker(bm.collectInterval)
			defer ticker.Stop()

			bm.collect(ctx)
			for {
				select {
				case <-bm.stopCh:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
					bm.collect(ctx)
				}
			}
		}()
	})
}

func (bm *BusinessMetrics) collect(ctx context.Context) {
	counts, err := bm.campaigns.CampaignCountsByStatus(ctx)
	if err != nil {
		bm.logger.Warn("Failed to collect campaign counts", zap.Error(err))
		return
	}
	for status, n := range counts {
		bm.campaignsByStatus.Record(ctx, n, AttrCampaignStatus.String(status))
	}
}

// Stop ends periodic collection. Safe to call more than once.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopCh)
		bm.wg.Wait()
	})
}
