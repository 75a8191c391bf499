// internal/services/audit_service.go
package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

// AuditService writes the append-only access log. Writes are fire-and-forget:
// an audit failure must never fail the decision it records.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func (s *AuditService) Record(licenseKey, action, ip, details string) {
	entry := &models.AccessLog{
		LicenseKey: licenseKey,
		Action:     action,
		IPAddress:  ip,
		Details:    utils.CleanInput(details),
	}

	go func() {
		if err := s.db.Create(entry).Error; err != nil {
			logrus.WithError(err).WithField("action", action).Error("Failed to write access log")
		}
	}()
}

func (s *AuditService) RecordDevice(licenseKey, deviceID, action, ip, details string) {
	entry := &models.AccessLog{
		LicenseKey: licenseKey,
		DeviceID:   deviceID,
		Action:     action,
		IPAddress:  ip,
		Details:    utils.CleanInput(details),
	}

	go func() {
		if err := s.db.Create(entry).Error; err != nil {
			logrus.WithError(err).WithField("action", action).Error("Failed to write access log")
		}
	}()
}

type AccessLogSearchParams struct {
	utils.PaginationParams
	Action string
}

func (s *AuditService) List(params AccessLogSearchParams) ([]models.AccessLog, int64, error) {
	query := s.db.Model(&models.AccessLog{})

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("license_key LIKE ? OR details LIKE ? OR ip_address LIKE ?", like, like, like)
	}
	if params.Action != "" {
		query = query.Where("action = ?", params.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count access logs: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var logs []models.AccessLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch access logs: %w", err)
	}

	return logs, total, nil
}

func (s *AuditService) RecentForLicense(licenseKey string, limit int) ([]models.AccessLog, error) {
	var logs []models.AccessLog
	if err := s.db.Where("license_key = ?", licenseKey).
		Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch access logs: %w", err)
	}
	return logs, nil
}
