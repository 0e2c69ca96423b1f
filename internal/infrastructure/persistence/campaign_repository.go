package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// campaignEditableColumns are written by Update. Funds columns are owned by
// IncrementFunds and DecrementFunds.
var campaignEditableColumns = []string{
	"title", "description", "category", "goal", "duration_days", "end_date",
	"status", "location", "image_key", "documents", "urgent", "featured",
	"approved_by", "approved_at", "rejection_reason", "version", "updated_at",
}

// GormCampaignRepository implements campaign.Repository using GORM
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// FindByID finds a campaign by its ID
func (r *GormCampaignRepository) FindByID(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Campaign")
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads a campaign and locks its row until the surrounding
// transaction ends. SQLite has no row locks; its single writer gives the same
// guarantee.
func (r *GormCampaignRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	var model models.CampaignModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "Campaign")
	}
	return model.ToDomain(), nil
}

// FindAll returns one page of campaigns and the total for the same filter
func (r *GormCampaignRepository) FindAll(ctx context.Context, filter campaign.ListFilter) ([]campaign.Campaign, int64, error) {
	filter.Normalize()
	base := r.applyFilter(r.db.WithContext(ctx).Model(&models.CampaignModel{}), filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CampaignModel
	query := applyCampaignSort(base.Session(&gorm.Session{}), filter.Sort).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	campaigns := make([]campaign.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, *rows[i].ToDomain())
	}
	return campaigns, total, nil
}

// FindByStatuses returns a batch of campaigns ordered by id for keyset scans
func (r *GormCampaignRepository) FindByStatuses(ctx context.Context, statuses []campaign.Status, after uuid.UUID, limit int) ([]campaign.Campaign, error) {
	if len(statuses) == 0 {
		return []campaign.Campaign{}, nil
	}
	var rows []models.CampaignModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	campaigns := make([]campaign.Campaign, 0, len(rows))
	for i := range rows {
		campaigns = append(campaigns, *rows[i].ToDomain())
	}
	return campaigns, nil
}

// Create inserts a new campaign
func (r *GormCampaignRepository) Create(ctx context.Context, c *campaign.Campaign) error {
	model := models.CampaignModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "Campaign")
	}
	return nil
}

// Update writes the editable columns guarded by the expected version
func (r *GormCampaignRepository) Update(ctx context.Context, c *campaign.Campaign, expectedVersion int) error {
	model := models.CampaignModelFromDomain(c)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", expectedVersion).
		Select(campaignEditableColumns).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error, "Campaign")
	}
	if result.RowsAffected == 0 {
		return r.missingOrConflict(ctx, c.ID)
	}
	return nil
}

// TransitionStatus performs a compare-and-set on the status column. A move to
// completed also requires the goal to still be met, so a refund that landed
// after the caller read the campaign cannot be overtaken.
func (r *GormCampaignRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to campaign.Status, now time.Time) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CampaignModel{}).
		Where("id = ? AND status = ?", id, from)
	if to == campaign.StatusCompleted {
		query = query.Where("collected >= goal")
	}
	result := query.
		UpdateColumns(map[string]any{
			"status":     to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return false, translateError(result.Error, "Campaign")
	}
	return result.RowsAffected == 1, nil
}

// IncrementFunds adds amount and one donor in a single guarded statement
func (r *GormCampaignRepository) IncrementFunds(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error) {
	now = now.UTC()
	result := r.db.WithContext(ctx).
		Model(&models.CampaignModel{}).
		Where("id = ? AND status = ? AND end_date >= ?", id, campaign.StatusActive, now).
		UpdateColumns(map[string]any{
			"collected":   gorm.Expr("collected + ?", amount),
			"donor_count": gorm.Expr("donor_count + 1"),
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, translateError(result.Error, "Campaign")
	}
	return result.RowsAffected == 1, nil
}

// DecrementFunds removes amount and one donor from an active campaign
// without letting either go negative
func (r *GormCampaignRepository) DecrementFunds(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CampaignModel{}).
		Where("id = ? AND status = ? AND collected >= ? AND donor_count >= 1", id, campaign.StatusActive, amount).
		UpdateColumns(map[string]any{
			"collected":   gorm.Expr("collected - ?", amount),
			"donor_count": gorm.Expr("donor_count - 1"),
			"updated_at":  now.UTC(),
		})
	if result.Error != nil {
		return false, translateError(result.Error, "Campaign")
	}
	return result.RowsAffected == 1, nil
}

// Delete removes a campaign
func (r *GormCampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CampaignModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error, "Campaign")
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Campaign")
	}
	return nil
}

func (r *GormCampaignRepository) missingOrConflict(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CampaignModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("Campaign")
	}
	return shared.ErrConcurrencyConflict
}

// applyFilter builds the WHERE clause shared by the count and page queries
func (r *GormCampaignRepository) applyFilter(query *gorm.DB, filter campaign.ListFilter) *gorm.DB {
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Urgent != nil {
		query = query.Where("urgent = ?", *filter.Urgent)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	return query
}

func applyCampaignSort(query *gorm.DB, mode campaign.SortMode) *gorm.DB {
	switch mode {
	case campaign.SortUrgent:
		query = query.Order("urgent DESC").Order("created_at DESC")
	case campaign.SortPopular:
		query = query.Order("donor_count DESC").Order("collected DESC")
	case campaign.SortGoal:
		query = query.Order("goal DESC")
	case campaign.SortEnding:
		query = query.Order("end_date ASC")
	default:
		query = query.Order("created_at DESC")
	}
	// id breaks ties so pages never overlap
	return query.Order("id ASC")
}

// likePattern lower-cases s and escapes LIKE wildcards for a contains match
func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// Ensure GormCampaignRepository implements campaign.Repository
var _ campaign.Repository = (*GormCampaignRepository)(nil)
