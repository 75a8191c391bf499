// internal/models/security.go
package models

import (
	"time"
)

// BlockedIP is a globally blocked client address. Rows are created by admin
// action or by the brute-force guard; only an admin removes them.
type BlockedIP struct {
	BaseModel
	IPAddress string `json:"ip_address" gorm:"uniqueIndex;size:64;not null"`
	Reason    string `json:"reason" gorm:"type:text"`
}

// FailedLogin counts consecutive failed admin logins per IP. Cleared on a
// successful login; at MaxLoginAttempts the IP is auto-blocked.
type FailedLogin struct {
	BaseModel
	IPAddress    string    `json:"ip_address" gorm:"uniqueIndex;size:64;not null"`
	AttemptCount int       `json:"attempt_count" gorm:"default:1"`
	LastAttempt  time.Time `json:"last_attempt"`
}

const MaxLoginAttempts = 5
