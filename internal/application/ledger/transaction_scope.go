package ledger

import (
	"context"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/donation"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every repository handed to fn shares one database transaction, committed
// when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories scoped to a transaction
type TransactionalRepositories interface {
	// CampaignRepo returns the campaign repository scoped to the current transaction
	CampaignRepo() campaign.Repository
	// DonationRepo returns the donation repository scoped to the current transaction
	DonationRepo() donation.Repository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// Useful in tests.
type NoOpTransactionScope struct {
	campaignRepo campaign.Repository
	donationRepo donation.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(campaignRepo campaign.Repository, donationRepo donation.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{campaignRepo: campaignRepo, donationRepo: donationRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// CampaignRepo returns the campaign repository
func (s *NoOpTransactionScope) CampaignRepo() campaign.Repository {
	return s.campaignRepo
}

// DonationRepo returns the donation repository
func (s *NoOpTransactionScope) DonationRepo() donation.Repository {
	return s.donationRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
