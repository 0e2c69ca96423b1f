package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignTotals aggregates money and donors over all campaigns
type CampaignTotals struct {
	TotalCampaigns int64           `json:"totalCampaigns"`
	TotalGoal      decimal.Decimal `json:"totalGoal" swaggertype:"string"`
	TotalCollected decimal.Decimal `json:"totalCollected" swaggertype:"string"`
	TotalDonors    int64           `json:"totalDonors"`
}

// CategoryStat is the per-category breakdown of campaigns
type CategoryStat struct {
	Category  string          `json:"category"`
	Label     string          `json:"label"`
	Count     int64           `json:"count"`
	Collected decimal.Decimal `json:"collected" swaggertype:"string"`
}

// DonationSummary aggregates completed donations
type DonationSummary struct {
	TotalDonations int64           `json:"totalDonations"`
	TotalAmount    decimal.Decimal `json:"totalAmount" swaggertype:"string"`
	AverageAmount  decimal.Decimal `json:"averageAmount" swaggertype:"string"`
	UniqueDonors   int64           `json:"uniqueDonors"`
}

// TopDonor ranks donors by lifetime completed total.
// Email is only used for grouping and is never part of a public response.
type TopDonor struct {
	Email         string          `json:"-"`
	Name          string          `json:"name"`
	TotalAmount   decimal.Decimal `json:"totalAmount" swaggertype:"string"`
	DonationCount int64           `json:"donationCount"`
}

// DailyStat is one day of completed donations
type DailyStat struct {
	Date   string          `json:"date"` // YYYY-MM-DD in UTC
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// TopCampaign ranks campaigns by amount collected
type TopCampaign struct {
	ID         uuid.UUID       `json:"id"`
	Title      string          `json:"title"`
	Status     string          `json:"status"`
	Goal       decimal.Decimal `json:"goal" swaggertype:"string"`
	Collected  decimal.Decimal `json:"collected" swaggertype:"string"`
	DonorCount int64           `json:"donorCount"`
}

// Repository defines read-only aggregate queries over campaigns and donations.
// Only completed donations are counted.
type Repository interface {
	// CampaignTotals sums goal, collected and donors over every campaign
	CampaignTotals(ctx context.Context) (*CampaignTotals, error)

	// CampaignCountsByStatus counts campaigns per status
	CampaignCountsByStatus(ctx context.Context) (map[string]int64, error)

	// CategoryBreakdown counts campaigns and sums collected per category
	CategoryBreakdown(ctx context.Context) ([]CategoryStat, error)

	// DonationSummary aggregates completed donations, optionally for one campaign
	DonationSummary(ctx context.Context, campaignID *uuid.UUID) (*DonationSummary, error)

	// TopDonors ranks distinct donors (by email) among public donations
	TopDonors(ctx context.Context, campaignID *uuid.UUID, limit int) ([]TopDonor, error)

	// DailyStats buckets completed donations per UTC day since the given time
	DailyStats(ctx context.Context, campaignID *uuid.UUID, since time.Time) ([]DailyStat, error)

	// TopCampaigns ranks campaigns by collected amount
	TopCampaigns(ctx context.Context, limit int) ([]TopCampaign, error)
}
