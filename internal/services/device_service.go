// internal/services/device_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

// DeviceService covers device administration. Registration itself happens
// inside the admission path.
type DeviceService struct {
	db  *gorm.DB
	now func() time.Time
}

// DeviceRow joins the owning license's name and status for listings.
type DeviceRow struct {
	models.Device
	LicenseName   string `json:"license_name"`
	LicenseStatus string `json:"license_status"`
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db, now: time.Now}
}

func (s *DeviceService) List(params utils.PaginationParams) ([]DeviceRow, int64, error) {
	query := s.db.Model(&models.Device{})

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where(
			"device_id LIKE ? OR device_name LIKE ? OR devices.license_key LIKE ? OR devices.ip_address LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	query = query.
		Select("devices.*, licenses.name AS license_name, licenses.status AS license_status").
		Joins("LEFT JOIN licenses ON licenses.license_key = devices.license_key").
		Order("devices.last_seen DESC")
	query = utils.ApplyPagination(query, params)

	var rows []DeviceRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch devices: %w", err)
	}

	return rows, total, nil
}

func (s *DeviceService) ListByLicense(licenseKey string) ([]models.Device, error) {
	var devices []models.Device
	if err := s.db.Where("license_key = ?", licenseKey).
		Order("last_seen DESC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch devices: %w", err)
	}
	return devices, nil
}

// CountLive counts the devices consuming a license's quota: blocked devices
// do not count.
func (s *DeviceService) CountLive(licenseKey string) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Device{}).
		Where("license_key = ? AND is_blocked = ?", licenseKey, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}

// ListOnline applies the presence heuristic: last seen within the recency
// window. Display only.
func (s *DeviceService) ListOnline() ([]models.Device, error) {
	cutoff := s.now().Add(-models.OnlineWindow)

	var devices []models.Device
	if err := s.db.Where("last_seen > ?", cutoff).
		Order("last_seen DESC").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch online devices: %w", err)
	}
	return devices, nil
}

func (s *DeviceService) SetBlocked(id uuid.UUID, blocked bool) error {
	result := s.db.Model(&models.Device{}).Where("id = ?", id).Update("is_blocked", blocked)
	if result.Error != nil {
		return fmt.Errorf("failed to update device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *DeviceService) Rename(id uuid.UUID, name string) error {
	result := s.db.Model(&models.Device{}).Where("id = ?", id).Update("device_name", utils.CleanInput(name))
	if result.Error != nil {
		return fmt.Errorf("failed to rename device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *DeviceService) Delete(id uuid.UUID) error {
	result := s.db.Unscoped().Delete(&models.Device{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
