package persistence

import (
	"context"
	"errors"

	"github.com/donation/backend/internal/application/ledger"
	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
	"github.com/donation/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements ledger.TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction. An error from fn rolls
// the transaction back. Serialization failures, deadlocks and busy databases
// raised at begin or commit are reported as shared.ErrConcurrencyConflict.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos ledger.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	if err != nil && IsRetryable(err) && !errors.Is(err, shared.ErrConcurrencyConflict) {
		return errors.Join(shared.ErrConcurrencyConflict, err)
	}
	return err
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) CampaignRepo() campaign.Repository {
	return NewGormCampaignRepository(r.tx)
}

func (r *gormTransactionalRepositories) DonationRepo() donation.Repository {
	return NewGormDonationRepository(r.tx)
}

var _ ledger.TransactionScope = (*GormTransactionScope)(nil)
var _ ledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
