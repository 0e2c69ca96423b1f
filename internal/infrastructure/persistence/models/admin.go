package models

import (
	"time"

	"github.com/donation/backend/internal/domain/identity"
)

// AdminModel is the persistence model for the Admin aggregate.
type AdminModel struct {
	AggregateModel
	Email               string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	Name                string        `gorm:"type:varchar(100);not null"`
	PasswordHash        string        `gorm:"type:varchar(255);not null"`
	Role                identity.Role `gorm:"type:varchar(20);not null;default:'admin'"`
	Active              bool          `gorm:"not null"`
	LastLoginAt         *time.Time
	FailedLoginAttempts int `gorm:"not null;default:0"`
	LockedUntil         *time.Time
}

// TableName returns the table name for GORM
func (AdminModel) TableName() string {
	return "admins"
}

// ToDomain converts the persistence model to a domain Admin.
func (m *AdminModel) ToDomain() *identity.Admin {
	return &identity.Admin{
		BaseAggregateRoot:   m.ToAggregateRoot(),
		Email:               m.Email,
		Name:                m.Name,
		PasswordHash:        m.PasswordHash,
		Role:                m.Role,
		Active:              m.Active,
		LastLoginAt:         m.LastLoginAt,
		FailedLoginAttempts: m.FailedLoginAttempts,
		LockedUntil:         m.LockedUntil,
	}
}

// FromDomain populates the persistence model from a domain Admin.
func (m *AdminModel) FromDomain(a *identity.Admin) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.Email = a.Email
	m.Name = a.Name
	m.PasswordHash = a.PasswordHash
	m.Role = a.Role
	m.Active = a.Active
	m.LastLoginAt = a.LastLoginAt
	m.FailedLoginAttempts = a.FailedLoginAttempts
	m.LockedUntil = a.LockedUntil
}

// AdminModelFromDomain creates a new persistence model from a domain Admin.
func AdminModelFromDomain(a *identity.Admin) *AdminModel {
	m := &AdminModel{}
	m.FromDomain(a)
	return m
}
