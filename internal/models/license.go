// internal/models/license.go
package models

import (
	"time"
)

type License struct {
	BaseModel
	Key        string        `json:"license_key" gorm:"column:license_key;uniqueIndex;size:64;not null"`
	Name       string        `json:"name" gorm:"size:255;default:''"`
	Status     LicenseStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	ExpiresAt  time.Time     `json:"expires_at" gorm:"not null"`
	// A zero MaxDevices means unlimited, so the column carries no default:
	// GORM would treat the zero value as unset and write the default instead.
	MaxDevices int    `json:"max_devices" gorm:"not null"`
	Note       string `json:"note" gorm:"type:text"`

	// Relationships
	Devices []Device `json:"devices,omitempty" gorm:"foreignKey:LicenseKey;references:Key"`
}

// DaysLeft is the whole-day remainder until expiry, rounded up.
func (l *License) DaysLeft(now time.Time) int {
	remaining := l.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func (l *License) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
