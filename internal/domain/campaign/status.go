package campaign

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status represents the lifecycle status of a campaign
type Status string

const (
	StatusPending   Status = "pending"   // Awaiting admin approval
	StatusActive    Status = "active"    // Accepting donations
	StatusCompleted Status = "completed" // Goal reached
	StatusExpired   Status = "expired"   // End date passed with goal unmet
	StatusCancelled Status = "cancelled" // Cancelled by an admin
	StatusRejected  Status = "rejected"  // Rejected during review
)

// AllStatuses lists every campaign status
var AllStatuses = []Status{
	StatusPending,
	StatusActive,
	StatusCompleted,
	StatusExpired,
	StatusCancelled,
	StatusRejected,
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusExpired, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// NonTerminalStatuses are the statuses the lifecycle sweep looks at
func NonTerminalStatuses() []Status {
	return []Status{StatusPending, StatusActive}
}

// Category is the canonical campaign category
type Category string

const (
	CategoryEducation   Category = "education"
	CategoryHealth      Category = "health"
	CategoryChildren    Category = "children"
	CategoryFood        Category = "food"
	CategoryEnvironment Category = "environment"
	CategoryAnimals     Category = "animals"
	CategoryCommunity   Category = "community"
	CategoryEmergency   Category = "emergency"
	CategoryOther       Category = "other"
)

// AllCategories lists every category in display order
var AllCategories = []Category{
	CategoryEducation,
	CategoryHealth,
	CategoryChildren,
	CategoryFood,
	CategoryEnvironment,
	CategoryAnimals,
	CategoryCommunity,
	CategoryEmergency,
	CategoryOther,
}

// ParseCategory accepts a slug in any letter case
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	return c, c.IsValid()
}

// IsValid reports whether c is a known category
func (c Category) IsValid() bool {
	for _, cat := range AllCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Label returns the human readable category name
func (c Category) Label() string {
	// Casers keep state, so each call gets its own
	return cases.Title(language.English).String(string(c))
}

// String returns the string representation
func (c Category) String() string {
	return string(c)
}
