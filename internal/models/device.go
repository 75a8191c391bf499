// internal/models/device.go
package models

import (
	"time"
)

// Device is one bound client installation: a (license key, device id) pair.
type Device struct {
	BaseModel
	LicenseKey string    `json:"license_key" gorm:"uniqueIndex:idx_license_device;size:64;not null"`
	DeviceID   string    `json:"device_id" gorm:"uniqueIndex:idx_license_device;size:255;not null"`
	Name       string    `json:"device_name" gorm:"column:device_name;size:255;default:''"`
	IPAddress  string    `json:"ip_address" gorm:"size:64;default:''"`
	UserAgent  string    `json:"user_agent" gorm:"size:512;default:''"`
	IsBlocked  bool      `json:"is_blocked" gorm:"default:false;index"`
	FirstSeen  time.Time `json:"first_seen" gorm:"autoCreateTime"`
	LastSeen   time.Time `json:"last_seen" gorm:"index"`
}

// OnlineWindow is the recency window for the presence heuristic. Display
// only, never used for admission decisions.
const OnlineWindow = 5 * time.Minute

func (d *Device) IsOnline(now time.Time) bool {
	return now.Sub(d.LastSeen) <= OnlineWindow
}
