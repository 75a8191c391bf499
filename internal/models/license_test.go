// internal/models/license_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		expiresAt time.Time
		want      int
	}{
		{"expired", now.Add(-time.Hour), 0},
		{"expires now", now, 0},
		{"one hour left rounds up", now.Add(time.Hour), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"just over one day rounds up", now.Add(25 * time.Hour), 2},
		{"thirty days", now.Add(30 * 24 * time.Hour), 30},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lic := License{ExpiresAt: tc.expiresAt}
			assert.Equal(t, tc.want, lic.DaysLeft(now))
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.Equal(t, LicenseStatusActive, EffectiveStatus(LicenseStatusActive, future, now))
	assert.Equal(t, LicenseStatusExpired, EffectiveStatus(LicenseStatusActive, past, now))
	// Revocation wins even when the license is also past its expiry
	assert.Equal(t, LicenseStatusRevoked, EffectiveStatus(LicenseStatusRevoked, past, now))
	assert.Equal(t, LicenseStatusExpired, EffectiveStatus(LicenseStatusExpired, past, now))
}

func TestDeviceIsOnline(t *testing.T) {
	now := time.Now()

	fresh := Device{LastSeen: now.Add(-time.Minute)}
	assert.True(t, fresh.IsOnline(now))

	stale := Device{LastSeen: now.Add(-10 * time.Minute)}
	assert.False(t, stale.IsOnline(now))
}
