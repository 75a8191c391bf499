// internal/services/outcome.go
package services

import (
	"github.com/makairamei/premium-server/internal/models"
)

// DenialReason is the stable, machine-readable admission taxonomy. Denials
// are ordinary return values; only infrastructure failures travel as errors.
type DenialReason string

const (
	ReasonIPBlocked     DenialReason = "ip_blocked"
	ReasonNotFound      DenialReason = "not_found"
	ReasonRevoked       DenialReason = "revoked"
	ReasonExpired       DenialReason = "expired"
	ReasonDeviceBlocked DenialReason = "device_blocked"
	ReasonMaxDevices    DenialReason = "max_devices"
	ReasonNoSession     DenialReason = "no_session"

	// ReasonStoreUnavailable is the code the HTTP layer attaches when a
	// storage call fails; it never originates as an Outcome.
	ReasonStoreUnavailable DenialReason = "store_unavailable"
)

// Outcome is the result of an admission decision.
type Outcome struct {
	Valid   bool            `json:"valid"`
	Reason  DenialReason    `json:"reason,omitempty"`
	License *models.License `json:"license,omitempty"`

	// DaysLeft is set on success: whole days until expiry, rounded up.
	DaysLeft int `json:"days_left,omitempty"`

	// DeviceCount/MaxDevices are set on max_devices denials for caller
	// messaging.
	DeviceCount int `json:"device_count,omitempty"`
	MaxDevices  int `json:"max_devices,omitempty"`
}

func deny(reason DenialReason) *Outcome {
	return &Outcome{Valid: false, Reason: reason}
}
