// internal/services/license_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/database"
	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

const maxBulkLicenses = 100

type LicenseService struct {
	db        *gorm.DB
	keyPrefix string
	now       func() time.Time
}

type CreateLicenseRequest struct {
	DurationDays int    `json:"duration_days" validate:"min=0"`
	Name         string `json:"name"`
	Note         string `json:"note"`
	MaxDevices   int    `json:"max_devices" validate:"min=0"`
	Count        int    `json:"count" validate:"min=0,max=100"`
}

type UpdateLicenseRequest struct {
	Name       *string    `json:"name,omitempty"`
	Note       *string    `json:"note,omitempty"`
	MaxDevices *int       `json:"max_devices,omitempty" validate:"omitempty,min=0"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	Status     *string    `json:"status,omitempty" validate:"omitempty,oneof=active revoked expired"`
}

type LicenseSearchParams struct {
	utils.PaginationParams
	Status  string
	Trashed bool
}

// LicenseWithCount decorates a license row with its device count for
// listings.
type LicenseWithCount struct {
	models.License
	DeviceCount int64 `json:"device_count"`
}

func NewLicenseService(db *gorm.DB, keyPrefix string) *LicenseService {
	return &LicenseService{db: db, keyPrefix: keyPrefix, now: time.Now}
}

func (s *LicenseService) Create(req *CreateLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	key, err := utils.GenerateLicenseKey(s.keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to generate license key: %w", err)
	}

	durationDays := req.DurationDays
	if durationDays <= 0 {
		durationDays = 30
	}
	maxDevices := req.MaxDevices
	if maxDevices < 0 {
		maxDevices = 0
	}

	lic := &models.License{
		Key:        key,
		Name:       utils.CleanInput(req.Name),
		Note:       utils.CleanInput(req.Note),
		Status:     models.LicenseStatusActive,
		ExpiresAt:  s.now().Add(time.Duration(durationDays) * 24 * time.Hour),
		MaxDevices: maxDevices,
	}

	// The unique index on license_key is the real uniqueness guarantee;
	// a colliding write fails loudly instead of overwriting.
	if err := s.db.Create(lic).Error; err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	return lic, nil
}

// CreateBulk issues up to 100 keys sharing one duration/device-limit/note.
func (s *LicenseService) CreateBulk(req *CreateLicenseRequest) ([]string, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > maxBulkLicenses {
		count = maxBulkLicenses
	}

	durationDays := req.DurationDays
	if durationDays <= 0 {
		durationDays = 30
	}
	expiresAt := s.now().Add(time.Duration(durationDays) * 24 * time.Hour)

	keys := make([]string, 0, count)
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for i := 0; i < count; i++ {
			key, err := utils.GenerateLicenseKey(s.keyPrefix)
			if err != nil {
				return fmt.Errorf("failed to generate license key: %w", err)
			}

			lic := &models.License{
				Key:        key,
				Status:     models.LicenseStatusActive,
				ExpiresAt:  expiresAt,
				MaxDevices: req.MaxDevices,
				Note:       utils.CleanInput(req.Note),
			}
			if err := tx.Create(lic).Error; err != nil {
				return fmt.Errorf("failed to create license: %w", err)
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

// GetByKey excludes soft-deleted rows; this is the lookup admission uses.
func (s *LicenseService) GetByKey(key string) (*models.License, error) {
	var lic models.License
	if err := s.db.Where("license_key = ?", key).First(&lic).Error; err != nil {
		return nil, err
	}
	return &lic, nil
}

// GetByID includes soft-deleted rows for admin views.
func (s *LicenseService) GetByID(id uuid.UUID) (*models.License, error) {
	var lic models.License
	if err := s.db.Unscoped().First(&lic, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lic, nil
}

func (s *LicenseService) List(params LicenseSearchParams) ([]LicenseWithCount, int64, error) {
	query := s.db.Model(&models.License{})

	if params.Trashed {
		query = query.Unscoped().Where("licenses.deleted_at IS NOT NULL")
	}

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("license_key LIKE ? OR name LIKE ? OR note LIKE ?", like, like, like)
	}

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "expires_at", "status", "name"})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var licenses []models.License
	if err := query.Find(&licenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch licenses: %w", err)
	}

	rows := make([]LicenseWithCount, 0, len(licenses))
	for _, lic := range licenses {
		var deviceCount int64
		s.db.Model(&models.Device{}).Where("license_key = ?", lic.Key).Count(&deviceCount)
		rows = append(rows, LicenseWithCount{License: lic, DeviceCount: deviceCount})
	}

	return rows, total, nil
}

func (s *LicenseService) Update(id uuid.UUID, req *UpdateLicenseRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = utils.CleanInput(*req.Name)
	}
	if req.Note != nil {
		updates["note"] = utils.CleanInput(*req.Note)
	}
	if req.MaxDevices != nil {
		updates["max_devices"] = *req.MaxDevices
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	if req.Status != nil {
		updates["status"] = models.LicenseStatus(*req.Status)
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.db.Model(&models.License{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update license: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *LicenseService) SetStatus(id uuid.UUID, status models.LicenseStatus) error {
	result := s.db.Model(&models.License{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to set license status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete hides the license from validation and default listings while
// keeping the row for restore.
func (s *LicenseService) SoftDelete(id uuid.UUID) error {
	result := s.db.Where("id = ?", id).Delete(&models.License{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete license: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *LicenseService) Restore(id uuid.UUID) error {
	result := s.db.Unscoped().Model(&models.License{}).Where("id = ?", id).Update("deleted_at", nil)
	if result.Error != nil {
		return fmt.Errorf("failed to restore license: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ForceDelete removes the license and everything keyed to it. Irreversible.
func (s *LicenseService) ForceDelete(id uuid.UUID) error {
	var lic models.License
	if err := s.db.Unscoped().First(&lic, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return fmt.Errorf("license lookup failed: %w", err)
	}

	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&models.Device{},
			&models.PluginUsage{},
			&models.PlaybackLog{},
			&models.AccessLog{},
		} {
			if err := tx.Unscoped().Where("license_key = ?", lic.Key).Delete(m).Error; err != nil {
				return fmt.Errorf("cascade delete failed: %w", err)
			}
		}
		if err := tx.Unscoped().Delete(&models.License{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete license: %w", err)
		}
		return nil
	})
}

type LicenseDetails struct {
	LicenseWithCount
	Devices     []models.Device      `json:"devices"`
	RecentLogs  []models.AccessLog   `json:"recent_logs"`
	PluginUsage []models.PluginUsage `json:"plugin_usage"`
	Playback    []models.PlaybackLog `json:"playback_logs"`
}

func (s *LicenseService) Details(id uuid.UUID) (*LicenseDetails, error) {
	lic, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	details := &LicenseDetails{}
	details.License = *lic

	s.db.Model(&models.Device{}).Where("license_key = ?", lic.Key).Count(&details.DeviceCount)
	s.db.Where("license_key = ?", lic.Key).Order("last_seen DESC").Find(&details.Devices)
	s.db.Where("license_key = ?", lic.Key).Order("created_at DESC").Limit(50).Find(&details.RecentLogs)
	s.db.Where("license_key = ?", lic.Key).Order("created_at DESC").Limit(50).Find(&details.PluginUsage)
	s.db.Where("license_key = ?", lic.Key).Order("created_at DESC").Limit(50).Find(&details.Playback)

	return details, nil
}

// BulkAction applies revoke/activate/delete/force_delete to up to 100 ids,
// skipping ids that fail instead of aborting the batch.
func (s *LicenseService) BulkAction(ids []uuid.UUID, action string) (int, error) {
	switch action {
	case "revoke", "activate", "delete", "force_delete":
	default:
		return 0, fmt.Errorf("invalid bulk action %q", action)
	}

	if len(ids) > maxBulkLicenses {
		ids = ids[:maxBulkLicenses]
	}

	processed := 0
	for _, id := range ids {
		var err error
		switch action {
		case "revoke":
			err = s.SetStatus(id, models.LicenseStatusRevoked)
		case "activate":
			err = s.SetStatus(id, models.LicenseStatusActive)
		case "delete":
			err = s.SoftDelete(id)
		case "force_delete":
			err = s.ForceDelete(id)
		}
		if err == nil {
			processed++
		}
	}
	return processed, nil
}
