// internal/services/security_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/models"
)

// SecurityService owns the IP blocklist and the admin-login brute-force
// guard. The guard's counter is independent of the admission checks.
type SecurityService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSecurityService(db *gorm.DB) *SecurityService {
	return &SecurityService{db: db, now: time.Now}
}

// IsIPBlocked reports whether ip is on the blocklist. Loopback addresses
// are always exempt so a misconfigured blocklist cannot lock out local
// administration.
func (s *SecurityService) IsIPBlocked(ip string) (bool, error) {
	if isLoopback(ip) {
		return false, nil
	}

	var count int64
	if err := s.db.Model(&models.BlockedIP{}).Where("ip_address = ?", ip).Count(&count).Error; err != nil {
		return false, fmt.Errorf("blocklist query failed: %w", err)
	}
	return count > 0, nil
}

// BlockIP is idempotent: blocking an already-blocked address is a no-op.
func (s *SecurityService) BlockIP(ip, reason string) error {
	var existing models.BlockedIP
	err := s.db.Where("ip_address = ?", ip).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("blocklist query failed: %w", err)
	}

	if err := s.db.Create(&models.BlockedIP{IPAddress: ip, Reason: reason}).Error; err != nil {
		return fmt.Errorf("failed to block IP: %w", err)
	}
	return nil
}

func (s *SecurityService) UnblockIP(ip string) error {
	if err := s.db.Unscoped().Where("ip_address = ?", ip).Delete(&models.BlockedIP{}).Error; err != nil {
		return fmt.Errorf("failed to unblock IP: %w", err)
	}
	return nil
}

func (s *SecurityService) ListBlockedIPs() ([]models.BlockedIP, error) {
	var ips []models.BlockedIP
	if err := s.db.Order("created_at DESC").Find(&ips).Error; err != nil {
		return nil, fmt.Errorf("failed to list blocked IPs: %w", err)
	}
	return ips, nil
}

// RecordFailedLogin bumps the per-IP counter; the fifth consecutive failure
// auto-inserts a blocklist entry with a synthetic reason.
func (s *SecurityService) RecordFailedLogin(ip string) error {
	var rec models.FailedLogin
	err := s.db.Where("ip_address = ?", ip).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = models.FailedLogin{IPAddress: ip, AttemptCount: 1, LastAttempt: s.now()}
		if err := s.db.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to record login attempt: %w", err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed login lookup failed: %w", err)
	}

	rec.AttemptCount++
	rec.LastAttempt = s.now()
	if err := s.db.Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to update login attempts: %w", err)
	}

	if rec.AttemptCount >= models.MaxLoginAttempts {
		return s.BlockIP(ip, "Brute force: too many failed login attempts")
	}
	return nil
}

// ClearFailedLogins resets the counter after a successful login.
func (s *SecurityService) ClearFailedLogins(ip string) error {
	if err := s.db.Unscoped().Where("ip_address = ?", ip).Delete(&models.FailedLogin{}).Error; err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

func (s *SecurityService) ListFailedLogins() ([]models.FailedLogin, error) {
	var logs []models.FailedLogin
	if err := s.db.Order("last_attempt DESC").Limit(100).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	return logs, nil
}

func isLoopback(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" || ip == "localhost"
}
