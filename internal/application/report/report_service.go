package report

import (
	"context"
	"time"

	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/report"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TopDonorLimit       = 5
	TopCampaignLimit    = 5
	RecentDonationLimit = 10
	DailyWindowDays     = 30
)

// Service assembles read-only statistics for the public site and the admin dashboard
type Service struct {
	reportRepo   report.Repository
	campaignRepo campaign.Repository
	donationRepo donation.Repository
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a new report Service
func NewService(
	reportRepo report.Repository,
	campaignRepo campaign.Repository,
	donationRepo donation.Repository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reportRepo:   reportRepo,
		campaignRepo: campaignRepo,
		donationRepo: donationRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CampaignOverview is the public aggregate over all campaigns
type CampaignOverview struct {
	TotalCampaigns     int64                 `json:"totalCampaigns"`
	ActiveCampaigns    int64                 `json:"activeCampaigns"`
	PendingCampaigns   int64                 `json:"pendingCampaigns"`
	CompletedCampaigns int64                 `json:"completedCampaigns"`
	ExpiredCampaigns   int64                 `json:"expiredCampaigns"`
	TotalGoal          decimal.Decimal       `json:"totalGoal" swaggertype:"string"`
	TotalCollected     decimal.Decimal       `json:"totalCollected" swaggertype:"string"`
	TotalDonors        int64                 `json:"totalDonors"`
	Categories         []report.CategoryStat `json:"categories"`
}

// TopDonorResponse is a ranked donor without contact details
type TopDonorResponse struct {
	Rank          int             `json:"rank"`
	Name          string          `json:"name"`
	TotalAmount   decimal.Decimal `json:"totalAmount" swaggertype:"string"`
	DonationCount int64           `json:"donationCount"`
}

// DonationStats aggregates completed donations, site-wide or for one campaign
type DonationStats struct {
	CampaignID      *uuid.UUID                      `json:"campaignId,omitempty"`
	TotalDonations  int64                           `json:"totalDonations"`
	TotalAmount     decimal.Decimal                 `json:"totalAmount" swaggertype:"string"`
	AverageAmount   decimal.Decimal                 `json:"averageAmount" swaggertype:"string"`
	UniqueDonors    int64                           `json:"uniqueDonors"`
	TopDonors       []TopDonorResponse              `json:"topDonors"`
	RecentDonations []ledger.PublicDonationResponse `json:"recentDonations"`
	Daily           []report.DailyStat              `json:"daily"`
}

// AdminSummary is the dashboard aggregate. Recent donations carry PII.
type AdminSummary struct {
	CampaignsByStatus map[string]int64          `json:"campaignsByStatus"`
	Donations         report.DonationSummary    `json:"donations"`
	RecentDonations   []ledger.DonationResponse `json:"recentDonations"`
	TopCampaigns      []report.TopCampaign      `json:"topCampaigns"`
	Daily             []report.DailyStat        `json:"daily"`
}

// CampaignOverview returns counts per status and money totals over all campaigns
func (s *Service) CampaignOverview(ctx context.Context) (*CampaignOverview, error) {
	totals, err := s.reportRepo.CampaignTotals(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.reportRepo.CampaignCountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.reportRepo.CategoryBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].Label = campaign.Category(categories[i].Category).Label()
	}

	return &CampaignOverview{
		TotalCampaigns:     totals.TotalCampaigns,
		ActiveCampaigns:    counts[string(campaign.StatusActive)],
		PendingCampaigns:   counts[string(campaign.StatusPending)],
		CompletedCampaigns: counts[string(campaign.StatusCompleted)],
		ExpiredCampaigns:   counts[string(campaign.StatusExpired)],
		TotalGoal:          totals.TotalGoal,
		TotalCollected:     totals.TotalCollected,
		TotalDonors:        totals.TotalDonors,
		Categories:         categories,
	}, nil
}

// DonationStats aggregates completed donations. A nil campaignID covers every campaign.
func (s *Service) DonationStats(ctx context.Context, campaignID *uuid.UUID) (*DonationStats, error) {
	if campaignID != nil {
		if _, err := s.campaignRepo.FindByID(ctx, *campaignID); err != nil {
			return nil, err
		}
	}

	summary, err := s.reportRepo.DonationSummary(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	donors, err := s.reportRepo.TopDonors(ctx, campaignID, TopDonorLimit)
	if err != nil {
		return nil, err
	}
	recent, err := s.donationRepo.FindRecentPublic(ctx, campaignID, RecentDonationLimit)
	if err != nil {
		return nil, err
	}
	daily, err := s.daily(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	return &DonationStats{
		CampaignID:      campaignID,
		TotalDonations:  summary.TotalDonations,
		TotalAmount:     summary.TotalAmount,
		AverageAmount:   summary.AverageAmount,
		UniqueDonors:    summary.UniqueDonors,
		TopDonors:       toTopDonorResponses(donors),
		RecentDonations: ledger.ToPublicDonationResponses(recent),
		Daily:           daily,
	}, nil
}

// AdminSummary returns the dashboard aggregates
func (s *Service) AdminSummary(ctx context.Context) (*AdminSummary, error) {
	counts, err := s.reportRepo.CampaignCountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[string]int64, len(campaign.AllStatuses))
	for _, status := range campaign.AllStatuses {
		byStatus[string(status)] = counts[string(status)]
	}

	summary, err := s.reportRepo.DonationSummary(ctx, nil)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.donationRepo.FindAll(ctx, donation.ListFilter{
		Filter: shared.Filter{Page: 1, PageSize: RecentDonationLimit, OrderBy: "created_at", OrderDir: "desc"},
	})
	if err != nil {
		return nil, err
	}
	top, err := s.reportRepo.TopCampaigns(ctx, TopCampaignLimit)
	if err != nil {
		return nil, err
	}
	daily, err := s.daily(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &AdminSummary{
		CampaignsByStatus: byStatus,
		Donations:         *summary,
		RecentDonations:   ledger.ToDonationResponses(recent),
		TopCampaigns:      top,
		Daily:             daily,
	}, nil
}

// daily returns one bucket per UTC day for the trailing window, oldest first,
// with days without donations filled with zeros
func (s *Service) daily(ctx context.Context, campaignID *uuid.UUID) ([]report.DailyStat, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(DailyWindowDays - 1))

	rows, err := s.reportRepo.DailyStats(ctx, campaignID, since)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]report.DailyStat, len(rows))
	for _, row := range rows {
		byDay[row.Date] = row
	}

	stats := make([]report.DailyStat, 0, DailyWindowDays)
	for i := 0; i < DailyWindowDays; i++ {
		day := since.AddDate(0, 0, i).Format(time.DateOnly)
		stat, ok := byDay[day]
		if !ok {
			stat = report.DailyStat{Date: day, Amount: decimal.Zero}
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

func toTopDonorResponses(donors []report.TopDonor) []TopDonorResponse {
	out := make([]TopDonorResponse, 0, len(donors))
	for i, d := range donors {
		name := d.Name
		if name == "" {
			name = donation.AnonymousName
		}
		out = append(out, TopDonorResponse{
			Rank:          i + 1,
			Name:          name,
			TotalAmount:   d.TotalAmount,
			DonationCount: d.DonationCount,
		})
	}
	return out
}
