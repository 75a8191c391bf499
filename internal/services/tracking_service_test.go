// internal/services/tracking_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makairamei/premium-server/internal/models"
)

func TestIsTrackedAction(t *testing.T) {
	for _, action := range []string{"HOME", "OPEN", "SEARCH", "LOAD", "PLAY", "SWITCH", "DOWNLOAD", "play"} {
		assert.True(t, IsTrackedAction(action), action)
	}
	for _, action := range []string{"", "DELETE", "EXPLODE"} {
		assert.False(t, IsTrackedAction(action), action)
	}
}

func TestTrackPluginUsageDefaultsAction(t *testing.T) {
	db := newTestDB(t)
	svc := NewTrackingService(db)

	require.NoError(t, svc.TrackPluginUsage("CS-0000-0000-0000-0300", "dev-1", "cine", "", "203.0.113.10"))
	require.NoError(t, svc.TrackPluginUsage("CS-0000-0000-0000-0300", "dev-1", "cine", "play", "203.0.113.10"))

	var logs []models.PluginUsage
	require.NoError(t, db.Order("created_at ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "OPEN", logs[0].Action)
	// Actions are stored uppercase
	assert.Equal(t, "PLAY", logs[1].Action)
}

func TestListPluginUsageSearch(t *testing.T) {
	db := newTestDB(t)
	svc := NewTrackingService(db)

	require.NoError(t, svc.TrackPluginUsage("CS-0000-0000-0000-0301", "dev-1", "cine", "OPEN", ""))
	require.NoError(t, svc.TrackPluginUsage("CS-0000-0000-0000-0301", "dev-1", "anime", "OPEN", ""))

	params := testPagination()
	params.Search = "cine"
	logs, total, err := svc.ListPluginUsage(params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "cine", logs[0].PluginName)
}

func TestTrackAndListPlayback(t *testing.T) {
	db := newTestDB(t)
	svc := NewTrackingService(db)

	require.NoError(t, svc.TrackPlayback("CS-0000-0000-0000-0302", "dev-1", "cine", "Some Movie", "vidsrc", "203.0.113.10"))

	logs, total, err := svc.ListPlayback(testPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "Some Movie", logs[0].VideoTitle)
	assert.Equal(t, "vidsrc", logs[0].SourceProvider)
}

func TestActivityFeedMergesSources(t *testing.T) {
	db := newTestDB(t)
	tracking := NewTrackingService(db)
	stats := NewStatsService(db)

	require.NoError(t, tracking.TrackPluginUsage("CS-0000-0000-0000-0303", "dev-1", "cine", "OPEN", ""))
	require.NoError(t, tracking.TrackPlayback("CS-0000-0000-0000-0303", "dev-1", "cine", "Some Movie", "vidsrc", ""))

	feed, err := stats.ActivityFeed(30, 100)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	types := map[string]bool{}
	for _, item := range feed {
		types[item.Type] = true
	}
	assert.True(t, types["plugin"])
	assert.True(t, types["playback"])
}

func TestDashboardCounts(t *testing.T) {
	db := newTestDB(t)
	stats := NewStatsService(db)
	admission := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0304", 0, time.Now().Add(24*time.Hour))

	registerTestDevice(t, admission, lic.Key, "dev-1", "203.0.113.10")
	require.NoError(t, NewTrackingService(db).TrackPluginUsage(lic.Key, "dev-1", "cine", "OPEN", ""))

	out, err := stats.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.TotalLicenses)
	assert.Equal(t, int64(1), out.ActiveLicenses)
	assert.Equal(t, int64(1), out.TotalDevices)
	assert.Equal(t, int64(1), out.ActiveDevices)
	assert.Equal(t, int64(1), out.TotalPluginEvents)
	require.Len(t, out.TopPlugins, 1)
	assert.Equal(t, "cine", out.TopPlugins[0].Name)
}
