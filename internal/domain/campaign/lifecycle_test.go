package campaign

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	build := func(status Status, collected int64) *Campaign {
		return &Campaign{
			Goal:      decimal.NewFromInt(1000),
			Collected: decimal.NewFromInt(collected),
			StartDate: created,
			EndDate:   ComputeEndDate(created, 30),
			Status:    status,
		}
	}
	beforeEnd := created.AddDate(0, 0, 10)
	afterEnd := created.AddDate(0, 0, 31)

	tests := []struct {
		name string
		c    *Campaign
		now  time.Time
		want Status
	}{
		{"active below goal stays active", build(StatusActive, 500), beforeEnd, StatusActive},
		{"active at goal completes", build(StatusActive, 1000), beforeEnd, StatusCompleted},
		{"active above goal completes", build(StatusActive, 1500), beforeEnd, StatusCompleted},
		{"active past end expires", build(StatusActive, 500), afterEnd, StatusExpired},
		{"funded wins over past end", build(StatusActive, 1000), afterEnd, StatusCompleted},
		{"pending below goal stays pending", build(StatusPending, 0), beforeEnd, StatusPending},
		{"pending past end expires", build(StatusPending, 0), afterEnd, StatusExpired},
		{"completed is sticky", build(StatusCompleted, 200), afterEnd, StatusCompleted},
		{"expired is sticky", build(StatusExpired, 5000), beforeEnd, StatusExpired},
		{"cancelled is sticky", build(StatusCancelled, 5000), afterEnd, StatusCancelled},
		{"rejected is sticky", build(StatusRejected, 5000), afterEnd, StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.c, tt.now))
		})
	}
}

func TestEvaluate_ExactlyAtEndDateStillOpen(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &Campaign{
		Goal:      decimal.NewFromInt(1000),
		Collected: decimal.NewFromInt(10),
		EndDate:   ComputeEndDate(created, 30),
		Status:    StatusActive,
	}
	assert.Equal(t, StatusActive, Evaluate(c, c.EndDate))
}

func TestApplyEvaluation(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &Campaign{
		Goal:      decimal.NewFromInt(1000),
		Collected: decimal.NewFromInt(1000),
		EndDate:   now.AddDate(0, 0, 5),
		Status:    StatusActive,
	}
	c.Version = 3

	assert.True(t, c.ApplyEvaluation(now))
	assert.Equal(t, StatusCompleted, c.Status)
	assert.Equal(t, 4, c.GetVersion())
	events := c.GetDomainEvents()
	if assert.Len(t, events, 1) {
		ev := events[0].(*CampaignStatusChangedEvent)
		assert.Equal(t, StatusActive, ev.From)
		assert.Equal(t, StatusCompleted, ev.To)
	}

	// once terminal nothing moves it, whatever happens to the aggregates
	c.Collected = decimal.Zero
	assert.False(t, c.ApplyEvaluation(now.AddDate(1, 0, 0)))
	assert.Equal(t, StatusCompleted, c.Status)
}
