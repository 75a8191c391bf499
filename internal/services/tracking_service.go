// internal/services/tracking_service.go
package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

// trackedActions is the whitelist of plugin events worth recording.
var trackedActions = map[string]bool{
	"HOME": true, "OPEN": true, "SEARCH": true, "LOAD": true,
	"PLAY": true, "SWITCH": true, "DOWNLOAD": true,
}

// TrackingService records plugin and playback activity for the analytics
// views.
type TrackingService struct {
	db *gorm.DB
}

func NewTrackingService(db *gorm.DB) *TrackingService {
	return &TrackingService{db: db}
}

func IsTrackedAction(action string) bool {
	return trackedActions[strings.ToUpper(action)]
}

func (s *TrackingService) TrackPluginUsage(licenseKey, deviceID, pluginName, action, ip string) error {
	action = strings.ToUpper(utils.CleanInput(action))
	if action == "" {
		action = "OPEN"
	}

	usage := &models.PluginUsage{
		LicenseKey: licenseKey,
		DeviceID:   deviceID,
		PluginName: utils.CleanInput(pluginName),
		Action:     action,
		IPAddress:  ip,
	}
	if err := s.db.Create(usage).Error; err != nil {
		return fmt.Errorf("failed to record plugin usage: %w", err)
	}
	return nil
}

func (s *TrackingService) TrackPlayback(licenseKey, deviceID, pluginName, videoTitle, sourceProvider, ip string) error {
	entry := &models.PlaybackLog{
		LicenseKey:     licenseKey,
		DeviceID:       deviceID,
		PluginName:     utils.CleanInput(pluginName),
		VideoTitle:     utils.CleanInput(videoTitle),
		SourceProvider: utils.CleanInput(sourceProvider),
		IPAddress:      ip,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record playback: %w", err)
	}
	return nil
}

func (s *TrackingService) ListPluginUsage(params utils.PaginationParams) ([]models.PluginUsage, int64, error) {
	query := s.db.Model(&models.PluginUsage{})

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("plugin_name LIKE ? OR license_key LIKE ? OR action LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count plugin usage: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "plugin_name", "action"})
	query = utils.ApplyPagination(query, params)

	var logs []models.PluginUsage
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch plugin usage: %w", err)
	}
	return logs, total, nil
}

func (s *TrackingService) ListPlayback(params utils.PaginationParams) ([]models.PlaybackLog, int64, error) {
	query := s.db.Model(&models.PlaybackLog{})

	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where(
			"video_title LIKE ? OR plugin_name LIKE ? OR source_provider LIKE ? OR license_key LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count playback logs: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "plugin_name", "video_title"})
	query = utils.ApplyPagination(query, params)

	var logs []models.PlaybackLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch playback logs: %w", err)
	}
	return logs, total, nil
}
