// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// ViewMode is the lens through which a non-master account's project
// visibility is determined.
type ViewMode string

const (
	// ViewModeDeveloper shows projects where the user is assigned.
	ViewModeDeveloper ViewMode = "DEVELOPER"
	// ViewModeAdmin shows projects the user owns.
	ViewModeAdmin ViewMode = "ADMIN"
)

// Valid reports whether the mode is one of the recognized literals.
func (m ViewMode) Valid() bool {
	return m == ViewModeDeveloper || m == ViewModeAdmin
}

// User represents an account in Foreman.
//
// ViewMode is meaningless for master administrators; they see everything and
// are exempt from mode switching. IsMasterAdmin is never settable through the
// API; it is assigned at bootstrap only.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Username      string         `gorm:"unique;not null" json:"username"`
	Email         string         `gorm:"unique;not null" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	Avatar        string         `json:"avatar"`
	ViewMode      ViewMode       `gorm:"type:varchar(20);not null;default:'DEVELOPER'" json:"view_mode"`
	IsMasterAdmin bool           `gorm:"not null;default:false" json:"is_master_admin"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
