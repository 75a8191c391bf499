// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key so the same models work on both the
// postgres store and the in-memory test store.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Enums
type LicenseStatus string

const (
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusRevoked LicenseStatus = "revoked"
	LicenseStatusExpired LicenseStatus = "expired"
)

// EffectiveStatus treats the stored status as a cache of a pure function of
// (storedStatus, expiresAt, now). Revocation wins over expiry.
func EffectiveStatus(status LicenseStatus, expiresAt time.Time, now time.Time) LicenseStatus {
	if status == LicenseStatusRevoked {
		return LicenseStatusRevoked
	}
	if now.After(expiresAt) {
		return LicenseStatusExpired
	}
	return status
}
