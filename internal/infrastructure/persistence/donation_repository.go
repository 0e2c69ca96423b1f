package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var donationSort = newSortColumns("created_at", "amount", "name", "payment_status")

// GormDonationRepository implements donation.Repository using GORM
type GormDonationRepository struct {
	db *gorm.DB
}

// NewGormDonationRepository creates a new GormDonationRepository
func NewGormDonationRepository(db *gorm.DB) *GormDonationRepository {
	return &GormDonationRepository{db: db}
}

// FindByID finds a donation by its ID
func (r *GormDonationRepository) FindByID(ctx context.Context, id uuid.UUID) (*donation.Donation, error) {
	var model models.DonationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Donation")
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds the donation recorded under a client key
func (r *GormDonationRepository) FindByIdempotencyKey(ctx context.Context, key string) (*donation.Donation, error) {
	var model models.DonationModel
	if err := r.db.WithContext(ctx).First(&model, "idempotency_key = ?", key).Error; err != nil {
		return nil, translateError(err, "Donation")
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of donations and the total for the same filter
func (r *GormDonationRepository) FindAll(ctx context.Context, filter donation.ListFilter) ([]donation.Donation, int64, error) {
	filter.Normalize()
	base := r.applyFilter(r.db.WithContext(ctx).Model(&models.DonationModel{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DonationModel
	err := base.Session(&gorm.Session{}).
		Order(donationSort.Clause(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toDonations(rows), total, nil
}

// FindRecentPublic returns the latest public completed donations
func (r *GormDonationRepository) FindRecentPublic(ctx context.Context, campaignID *uuid.UUID, limit int) ([]donation.Donation, error) {
	query := r.db.WithContext(ctx).
		Where("payment_status = ? AND display_publicly = ?", donation.PaymentStatusCompleted, true)
	if campaignID != nil {
		query = query.Where("campaign_id = ?", *campaignID)
	}
	var rows []models.DonationModel
	if err := query.Order("created_at DESC").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDonations(rows), nil
}

// Create inserts a donation
func (r *GormDonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	model := models.DonationModelFromDomain(d)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "Donation")
	}
	return nil
}

// TransitionPaymentStatus performs a compare-and-set on the payment status
func (r *GormDonationRepository) TransitionPaymentStatus(ctx context.Context, id uuid.UUID, from, to donation.PaymentStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DonationModel{}).
		Where("id = ? AND payment_status = ?", id, from).
		UpdateColumns(map[string]any{
			"payment_status": to,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now.UTC(),
		})
	if result.Error != nil {
		return false, translateError(result.Error, "Donation")
	}
	return result.RowsAffected == 1, nil
}

// CountCompletedByCampaign counts donations that contribute to a campaign
func (r *GormDonationRepository) CountCompletedByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DonationModel{}).
		Where("campaign_id = ? AND payment_status = ?", campaignID, donation.PaymentStatusCompleted).
		Count(&count).Error
	return count, err
}

// DeleteUnsettledByCampaign removes a campaign's donations that never counted
// towards its total
func (r *GormDonationRepository) DeleteUnsettledByCampaign(ctx context.Context, campaignID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.DonationModel{}, "campaign_id = ? AND payment_status <> ?", campaignID, donation.PaymentStatusCompleted).
		Error
}

func (r *GormDonationRepository) applyFilter(query *gorm.DB, filter donation.ListFilter) *gorm.DB {
	if filter.CampaignID != nil {
		query = query.Where("campaign_id = ?", *filter.CampaignID)
	}
	if len(filter.PaymentStatuses) > 0 {
		query = query.Where("payment_status IN ?", filter.PaymentStatuses)
	}
	if filter.PublicOnly {
		query = query.Where("payment_status = ? AND display_publicly = ?", donation.PaymentStatusCompleted, true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(
			"(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(phone) LIKE ? ESCAPE '\\' OR LOWER(transaction_id) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern, pattern,
		)
	}
	return query
}

func toDonations(rows []models.DonationModel) []donation.Donation {
	donations := make([]donation.Donation, 0, len(rows))
	for i := range rows {
		donations = append(donations, *rows[i].ToDomain())
	}
	return donations
}

// Ensure GormDonationRepository implements donation.Repository
var _ donation.Repository = (*GormDonationRepository)(nil)
