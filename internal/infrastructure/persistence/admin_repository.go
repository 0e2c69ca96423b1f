package persistence

import (
	"context"

	"github.com/donation/backend/internal/domain/identity"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/donation/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAdminRepository implements identity.AdminRepository using GORM
type GormAdminRepository struct {
	db *gorm.DB
}

// NewGormAdminRepository creates a new GormAdminRepository
func NewGormAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// FindByID finds an admin by ID
func (r *GormAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Admin, error) {
	var model models.AdminModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Admin")
	}
	return model.ToDomain(), nil
}

// FindByEmail finds an admin by normalized email
func (r *GormAdminRepository) FindByEmail(ctx context.Context, email string) (*identity.Admin, error) {
	var model models.AdminModel
	if err := r.db.WithContext(ctx).First(&model, "email = ?", shared.NormalizeEmail(email)).Error; err != nil {
		return nil, translateError(err, "Admin")
	}
	return model.ToDomain(), nil
}

// Create inserts a new admin
func (r *GormAdminRepository) Create(ctx context.Context, admin *identity.Admin) error {
	model := models.AdminModelFromDomain(admin)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, "Admin")
	}
	return nil
}

// UpdateLoginState writes the login bookkeeping columns
func (r *GormAdminRepository) UpdateLoginState(ctx context.Context, admin *identity.Admin) error {
	result := r.db.WithContext(ctx).
		Model(&models.AdminModel{}).
		Where("id = ?", admin.ID).
		UpdateColumns(map[string]any{
			"last_login_at":         admin.LastLoginAt,
			"failed_login_attempts": admin.FailedLoginAttempts,
			"locked_until":          admin.LockedUntil,
			"updated_at":            admin.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Admin")
	}
	return nil
}

// UpdateStatus writes the active flag. The admin carries its new version, so
// the row must still be at the one before.
func (r *GormAdminRepository) UpdateStatus(ctx context.Context, admin *identity.Admin) error {
	result := r.db.WithContext(ctx).
		Model(&models.AdminModel{}).
		Where("id = ? AND version = ?", admin.ID, admin.Version-1).
		UpdateColumns(map[string]any{
			"active":                admin.Active,
			"failed_login_attempts": admin.FailedLoginAttempts,
			"locked_until":          admin.LockedUntil,
			"version":               admin.Version,
			"updated_at":            admin.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error, "Admin")
	}
	if result.RowsAffected == 1 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.AdminModel{}).Where("id = ?", admin.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return shared.NewNotFoundError("Admin")
	}
	return shared.ErrConcurrencyConflict
}

// Count returns the number of admins
func (r *GormAdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AdminModel{}).Count(&count).Error
	return count, err
}

// Ensure GormAdminRepository implements identity.AdminRepository
var _ identity.AdminRepository = (*GormAdminRepository)(nil)
