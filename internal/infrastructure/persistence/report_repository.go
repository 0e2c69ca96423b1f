package persistence

import (
	"context"
	"time"

	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReportRepository implements report.Repository using GORM
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// CampaignTotals sums goal, collected and donors over every campaign
func (r *GormReportRepository) CampaignTotals(ctx context.Context) (*report.CampaignTotals, error) {
	var result report.CampaignTotals
	err := r.db.WithContext(ctx).Table("campaigns").
		Select(`
			COUNT(*) AS total_campaigns,
			COALESCE(SUM(goal), 0) AS total_goal,
			COALESCE(SUM(collected), 0) AS total_collected,
			CAST(COALESCE(SUM(donor_count), 0) AS BIGINT) AS total_donors
		`).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CampaignCountsByStatus counts campaigns per status
func (r *GormReportRepository) CampaignCountsByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Table("campaigns").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CategoryBreakdown counts campaigns and sums collected per category
func (r *GormReportRepository) CategoryBreakdown(ctx context.Context) ([]report.CategoryStat, error) {
	var rows []report.CategoryStat
	err := r.db.WithContext(ctx).Table("campaigns").
		Select("category, COUNT(*) AS count, COALESCE(SUM(collected), 0) AS collected").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DonationSummary aggregates completed donations
func (r *GormReportRepository) DonationSummary(ctx context.Context, campaignID *uuid.UUID) (*report.DonationSummary, error) {
	var result report.DonationSummary
	query := r.completedDonations(ctx, campaignID).
		Select(`
			COUNT(*) AS total_donations,
			COALESCE(SUM(amount), 0) AS total_amount,
			COUNT(DISTINCT email) AS unique_donors
		`)
	if err := query.Scan(&result).Error; err != nil {
		return nil, err
	}
	if result.TotalDonations > 0 {
		result.AverageAmount = result.TotalAmount.Div(decimal.NewFromInt(result.TotalDonations)).Round(2)
	}
	return &result, nil
}

// TopDonors ranks donors among public completed donations. A donor who gave
// anonymously every time is returned with an empty name.
func (r *GormReportRepository) TopDonors(ctx context.Context, campaignID *uuid.UUID, limit int) ([]report.TopDonor, error) {
	var rows []report.TopDonor
	err := r.completedDonations(ctx, campaignID).
		Where("display_publicly = ?", true).
		Select(`
			email,
			COALESCE(MAX(CASE WHEN anonymous THEN NULL ELSE name END), '') AS name,
			SUM(amount) AS total_amount,
			COUNT(*) AS donation_count
		`).
		Group("email").
		Order("total_amount DESC").
		Order("email ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DailyStats buckets completed donations per UTC day
func (r *GormReportRepository) DailyStats(ctx context.Context, campaignID *uuid.UUID, since time.Time) ([]report.DailyStat, error) {
	day := r.dayExpr("created_at")
	var rows []struct {
		Bucket string
		Count  int64
		Amount decimal.Decimal
	}
	err := r.completedDonations(ctx, campaignID).
		Where("created_at >= ?", since.UTC()).
		Select(day + " AS bucket, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Group(day).
		Order("bucket ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make([]report.DailyStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, report.DailyStat{Date: row.Bucket, Count: row.Count, Amount: row.Amount})
	}
	return stats, nil
}

// TopCampaigns ranks campaigns by collected amount
func (r *GormReportRepository) TopCampaigns(ctx context.Context, limit int) ([]report.TopCampaign, error) {
	var rows []report.TopCampaign
	err := r.db.WithContext(ctx).Table("campaigns").
		Select("id, title, status, goal, collected, donor_count").
		Order("collected DESC").
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormReportRepository) completedDonations(ctx context.Context, campaignID *uuid.UUID) *gorm.DB {
	query := r.db.WithContext(ctx).Table("donations").
		Where("payment_status = ?", donation.PaymentStatusCompleted)
	if campaignID != nil {
		query = query.Where("campaign_id = ?", *campaignID)
	}
	return query
}

// dayExpr formats a timestamp column as YYYY-MM-DD in UTC for the active dialect
func (r *GormReportRepository) dayExpr(column string) string {
	if r.db.Dialector.Name() == "sqlite" {
		return "strftime('%Y-%m-%d', " + column + ")"
	}
	return "TO_CHAR(" + column + " AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
}

// Ensure GormReportRepository implements report.Repository
var _ report.Repository = (*GormReportRepository)(nil)
