// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: shared persistence fields (BaseModel, AggregateModel)
//   - campaign.go: campaigns table
//   - donation.go: donations table
//   - admin.go: admins table
package models
