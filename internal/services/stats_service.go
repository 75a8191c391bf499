// internal/services/stats_service.go
package services

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/models"
)

type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

type DashboardStats struct {
	TotalLicenses     int64 `json:"total_licenses"`
	ActiveLicenses    int64 `json:"active_licenses"`
	ExpiredLicenses   int64 `json:"expired_licenses"`
	RevokedLicenses   int64 `json:"revoked_licenses"`
	TotalDevices      int64 `json:"total_devices"`
	ActiveDevices     int64 `json:"active_devices"`
	TotalPluginEvents int64 `json:"total_plugin_events"`
	TotalPlaybacks    int64 `json:"total_playbacks"`
	TodayPluginEvents int64 `json:"today_plugin_events"`
	TodayPlaybacks    int64 `json:"today_playbacks"`
	BlockedIPs        int64 `json:"blocked_ips"`

	TopPlugins     []NameCount        `json:"top_plugins"`
	TopSources     []NameCount        `json:"top_sources"`
	RecentActivity []models.AccessLog `json:"recent_activity"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// FeedItem is one row of the merged real-time activity feed.
type FeedItem struct {
	Type       string    `json:"type"`
	LicenseKey string    `json:"license_key"`
	DeviceID   string    `json:"device_id"`
	PluginName string    `json:"plugin_name"`
	Action     string    `json:"action,omitempty"`
	VideoTitle string    `json:"video_title,omitempty"`
	IPAddress  string    `json:"ip_address"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: time.Now}
}

func (s *StatsService) Dashboard() (*DashboardStats, error) {
	stats := &DashboardStats{}
	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)
	hourAgo := now.Add(-time.Hour)

	s.db.Model(&models.License{}).Count(&stats.TotalLicenses)
	s.db.Model(&models.License{}).Where("status = ?", models.LicenseStatusActive).Count(&stats.ActiveLicenses)
	s.db.Model(&models.License{}).Where("status = ?", models.LicenseStatusExpired).Count(&stats.ExpiredLicenses)
	s.db.Model(&models.License{}).Where("status = ?", models.LicenseStatusRevoked).Count(&stats.RevokedLicenses)
	s.db.Model(&models.Device{}).Count(&stats.TotalDevices)
	s.db.Model(&models.Device{}).Where("last_seen > ?", hourAgo).Count(&stats.ActiveDevices)
	s.db.Model(&models.PluginUsage{}).Count(&stats.TotalPluginEvents)
	s.db.Model(&models.PlaybackLog{}).Count(&stats.TotalPlaybacks)
	s.db.Model(&models.PluginUsage{}).Where("created_at > ?", dayAgo).Count(&stats.TodayPluginEvents)
	s.db.Model(&models.PlaybackLog{}).Where("created_at > ?", dayAgo).Count(&stats.TodayPlaybacks)
	s.db.Model(&models.BlockedIP{}).Count(&stats.BlockedIPs)

	s.db.Model(&models.PluginUsage{}).
		Select("plugin_name AS name, COUNT(*) AS count").
		Where("created_at > ?", weekAgo).
		Group("plugin_name").Order("count DESC").Limit(10).
		Scan(&stats.TopPlugins)

	s.db.Model(&models.PlaybackLog{}).
		Select("source_provider AS name, COUNT(*) AS count").
		Where("created_at > ? AND source_provider <> ''", weekAgo).
		Group("source_provider").Order("count DESC").Limit(10).
		Scan(&stats.TopSources)

	s.db.Order("created_at DESC").Limit(20).Find(&stats.RecentActivity)

	return stats, nil
}

// ActivityFeed merges recent plugin and playback events, newest first.
func (s *StatsService) ActivityFeed(minutes, limit int) ([]FeedItem, error) {
	if minutes < 1 || minutes > 1440 {
		minutes = 30
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	cutoff := s.now().Add(-time.Duration(minutes) * time.Minute)

	var usage []models.PluginUsage
	if err := s.db.Where("created_at > ?", cutoff).
		Order("created_at DESC").Limit(limit).Find(&usage).Error; err != nil {
		return nil, err
	}

	var playback []models.PlaybackLog
	if err := s.db.Where("created_at > ?", cutoff).
		Order("created_at DESC").Limit(limit).Find(&playback).Error; err != nil {
		return nil, err
	}

	feed := make([]FeedItem, 0, len(usage)+len(playback))
	for _, u := range usage {
		feed = append(feed, FeedItem{
			Type:       "plugin",
			LicenseKey: u.LicenseKey,
			DeviceID:   u.DeviceID,
			PluginName: u.PluginName,
			Action:     u.Action,
			IPAddress:  u.IPAddress,
			Timestamp:  u.CreatedAt,
		})
	}
	for _, p := range playback {
		feed = append(feed, FeedItem{
			Type:       "playback",
			LicenseKey: p.LicenseKey,
			DeviceID:   p.DeviceID,
			PluginName: p.PluginName,
			VideoTitle: p.VideoTitle,
			IPAddress:  p.IPAddress,
			Timestamp:  p.CreatedAt,
		})
	}

	sort.Slice(feed, func(i, j int) bool { return feed[i].Timestamp.After(feed[j].Timestamp) })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}
