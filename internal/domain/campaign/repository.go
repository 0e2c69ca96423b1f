package campaign

import (
	"context"
	"time"

	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SortMode selects the listing order
type SortMode string

const (
	SortNewest  SortMode = "newest"
	SortUrgent  SortMode = "urgent"
	SortPopular SortMode = "popular"
	SortGoal    SortMode = "goal"
	SortEnding  SortMode = "ending"
)

// ParseSortMode maps a query value to a sort mode, defaulting to newest
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortUrgent, SortPopular, SortGoal, SortEnding:
		return SortMode(s)
	}
	return SortNewest
}

// ListFilter narrows campaign listings. Count and page share it.
type ListFilter struct {
	shared.Filter
	Category *Category
	// Statuses restricts the listing; empty means any status
	Statuses []Status
	Urgent   *bool
	Featured *bool
	Sort     SortMode
}

// Repository defines the interface for campaign persistence
type Repository interface {
	// FindByID finds a campaign by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Campaign, error)

	// FindByIDForUpdate finds a campaign and holds a row lock on it for the
	// rest of the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Campaign, error)

	// FindAll returns one page of campaigns and the total matching the same filter
	FindAll(ctx context.Context, filter ListFilter) ([]Campaign, int64, error)

	// FindByStatuses returns up to limit campaigns with id greater than after,
	// ordered by id, for batched scans
	FindByStatuses(ctx context.Context, statuses []Status, after uuid.UUID, limit int) ([]Campaign, error)

	// Create inserts a new campaign
	Create(ctx context.Context, c *Campaign) error

	// Update writes the editable fields and status of c if the stored version
	// still equals expectedVersion. Collected and DonorCount are never written.
	Update(ctx context.Context, c *Campaign, expectedVersion int) error

	// TransitionStatus sets status to "to" only if it is currently "from".
	// Completing additionally requires collected >= goal at write time.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status, now time.Time) (bool, error)

	// IncrementFunds atomically adds amount and one donor to an active campaign
	// whose end date has not passed. Returns false when the guard did not match.
	IncrementFunds(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error)

	// DecrementFunds atomically removes amount and one donor from an active
	// campaign without letting the totals go negative. Returns false when the
	// guard did not match.
	DecrementFunds(ctx context.Context, id uuid.UUID, amount decimal.Decimal, now time.Time) (bool, error)

	// Delete removes a campaign
	Delete(ctx context.Context, id uuid.UUID) error
}
