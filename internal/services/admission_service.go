// internal/services/admission_service.go
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

// AdmissionService owns the validate/deny decision: given a license key and
// the caller's identity it consults the license, device and blocklist state,
// performs the side effects (lazy expiry correction, device registration,
// last-seen refresh, session creation) and returns an Outcome.
type AdmissionService struct {
	db       *gorm.DB
	sessions *SessionCache
	security *SecurityService

	// device registration is a check-then-act sequence; a per-license
	// critical section closes the race between the count and the insert.
	locks keyedMutex

	now func() time.Time
}

// ValidateInput carries the optional device identity alongside the key.
// Placeholder values for the device fields normalize to empty.
type ValidateInput struct {
	Key        string
	IP         string
	DeviceID   string
	DeviceName string
	UserAgent  string
}

func NewAdmissionService(db *gorm.DB, sessions *SessionCache, security *SecurityService) *AdmissionService {
	return &AdmissionService{
		db:       db,
		sessions: sessions,
		security: security,
		now:      time.Now,
	}
}

// Validate runs the full admission check in strict order, short-circuiting
// at the first failing rule. On success it registers or refreshes the
// device and opens an IP session for the fast path.
func (s *AdmissionService) Validate(in ValidateInput) (*Outcome, error) {
	key := utils.CleanInput(in.Key)
	ip := utils.CleanInput(in.IP)
	deviceID := utils.NormalizeDeviceField(in.DeviceID)
	deviceName := utils.NormalizeDeviceField(in.DeviceName)

	// 1. Global IP block (loopback exempt)
	if ip != "" {
		blocked, err := s.security.IsIPBlocked(ip)
		if err != nil {
			return nil, fmt.Errorf("blocklist lookup failed: %w", err)
		}
		if blocked {
			return deny(ReasonIPBlocked), nil
		}
	}

	// 2. Key lookup (soft-deleted rows are invisible here). A key that does
	// not even have the issued shape cannot exist.
	if !utils.IsLicenseKeyFormat(key) {
		return deny(ReasonNotFound), nil
	}

	var lic models.License
	if err := s.db.Where("license_key = ?", key).First(&lic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return deny(ReasonNotFound), nil
		}
		return nil, fmt.Errorf("license lookup failed: %w", err)
	}

	// 3. Revocation
	if lic.Status == models.LicenseStatusRevoked {
		return deny(ReasonRevoked), nil
	}

	// 4. Expiry, with write-on-read correction of a stale 'active' status
	now := s.now()
	if lic.IsExpired(now) {
		if lic.Status != models.LicenseStatusExpired {
			if err := s.db.Model(&lic).Update("status", models.LicenseStatusExpired).Error; err != nil {
				return nil, fmt.Errorf("failed to expire license: %w", err)
			}
		}
		out := deny(ReasonExpired)
		out.License = &lic
		return out, nil
	}

	// 5. Device admission
	if deviceID != "" {
		out, err := s.admitDevice(&lic, deviceID, deviceName, ip, in.UserAgent, now)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}

	// 6. Success: open the fast-path session
	s.sessions.Put(ip, lic.Key)

	return &Outcome{
		Valid:    true,
		License:  &lic,
		DaysLeft: lic.DaysLeft(now),
	}, nil
}

// admitDevice returns a non-nil Outcome only on denial.
func (s *AdmissionService) admitDevice(lic *models.License, deviceID, deviceName, ip, userAgent string, now time.Time) (*Outcome, error) {
	unlock := s.locks.Lock(lic.Key)
	defer unlock()

	var denial *Outcome
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var dev models.Device
		err := tx.Where("license_key = ? AND device_id = ?", lic.Key, deviceID).First(&dev).Error
		switch {
		case err == nil:
			if dev.IsBlocked {
				denial = deny(ReasonDeviceBlocked)
				return nil
			}
			updates := map[string]interface{}{
				"last_seen":  now,
				"ip_address": ip,
			}
			if userAgent != "" {
				updates["user_agent"] = userAgent
			}
			return tx.Model(&dev).Updates(updates).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			// Only non-blocked devices consume the quota.
			var count int64
			if err := tx.Model(&models.Device{}).
				Where("license_key = ? AND is_blocked = ?", lic.Key, false).
				Count(&count).Error; err != nil {
				return fmt.Errorf("device count failed: %w", err)
			}

			if lic.MaxDevices > 0 && count >= int64(lic.MaxDevices) {
				denial = deny(ReasonMaxDevices)
				denial.License = lic
				denial.DeviceCount = int(count)
				denial.MaxDevices = lic.MaxDevices
				return nil
			}

			return tx.Create(&models.Device{
				LicenseKey: lic.Key,
				DeviceID:   deviceID,
				Name:       deviceName,
				IPAddress:  ip,
				UserAgent:  userAgent,
				FirstSeen:  now,
				LastSeen:   now,
			}).Error

		default:
			return fmt.Errorf("device lookup failed: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return denial, nil
}

// CheckSession is the fast path: a hit re-checks only the license's status
// and expiry, never the device ceiling. A stale session is evicted so it
// cannot outlive revocation or expiry.
func (s *AdmissionService) CheckSession(ip string) (*Outcome, error) {
	if ip != "" {
		blocked, err := s.security.IsIPBlocked(ip)
		if err != nil {
			return nil, fmt.Errorf("blocklist lookup failed: %w", err)
		}
		if blocked {
			return deny(ReasonIPBlocked), nil
		}
	}

	key, _, ok := s.sessions.Get(ip)
	if !ok {
		return deny(ReasonNoSession), nil
	}

	var lic models.License
	if err := s.db.Where("license_key = ?", key).First(&lic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.sessions.Delete(ip)
			return deny(ReasonNotFound), nil
		}
		return nil, fmt.Errorf("license lookup failed: %w", err)
	}

	if lic.Status == models.LicenseStatusRevoked {
		s.sessions.Delete(ip)
		return deny(ReasonRevoked), nil
	}

	now := s.now()
	if lic.IsExpired(now) || lic.Status == models.LicenseStatusExpired {
		if lic.Status != models.LicenseStatusExpired {
			if err := s.db.Model(&lic).Update("status", models.LicenseStatusExpired).Error; err != nil {
				return nil, fmt.Errorf("failed to expire license: %w", err)
			}
		}
		s.sessions.Delete(ip)
		return deny(ReasonExpired), nil
	}

	return &Outcome{
		Valid:    true,
		License:  &lic,
		DaysLeft: lic.DaysLeft(now),
	}, nil
}

// Heartbeat is a key-only cheap re-check used by already-admitted clients.
// It refreshes the caller's IP session but never walks the device state.
func (s *AdmissionService) Heartbeat(key, ip string) (*Outcome, error) {
	key = utils.CleanInput(key)
	if !utils.IsLicenseKeyFormat(key) {
		return deny(ReasonNotFound), nil
	}

	var lic models.License
	if err := s.db.Where("license_key = ?", key).First(&lic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return deny(ReasonNotFound), nil
		}
		return nil, fmt.Errorf("license lookup failed: %w", err)
	}

	if lic.Status == models.LicenseStatusRevoked {
		return deny(ReasonRevoked), nil
	}

	now := s.now()
	if lic.IsExpired(now) || lic.Status == models.LicenseStatusExpired {
		if lic.Status != models.LicenseStatusExpired {
			if err := s.db.Model(&lic).Update("status", models.LicenseStatusExpired).Error; err != nil {
				return nil, fmt.Errorf("failed to expire license: %w", err)
			}
		}
		return deny(ReasonExpired), nil
	}

	s.sessions.Put(ip, lic.Key)

	return &Outcome{
		Valid:    true,
		License:  &lic,
		DaysLeft: lic.DaysLeft(now),
	}, nil
}

// CheckRepoAccess gates the plugin repo endpoints: same status/expiry rules
// as Heartbeat, plus a session so subsequent check-ip calls succeed.
func (s *AdmissionService) CheckRepoAccess(key, ip string) (*Outcome, error) {
	return s.Heartbeat(key, ip)
}

// Sessions exposes the cache for the admin overview.
func (s *AdmissionService) Sessions() *SessionCache {
	return s.sessions
}

// keyedMutex hands out one mutex per license key.
type keyedMutex struct {
	mu sync.Map // string -> *sync.Mutex
}

func (k *keyedMutex) Lock(key string) func() {
	v, _ := k.mu.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
