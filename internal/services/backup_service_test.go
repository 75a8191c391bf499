// internal/services/backup_service_test.go
package services

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/config"
	"github.com/makairamei/premium-server/internal/models"
)

func newTestBackup(t *testing.T) (*BackupService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)

	cfg := &config.Config{}
	cfg.Backup.Dir = t.TempDir()

	svc, err := NewBackupService(db, cfg)
	require.NoError(t, err)
	return svc, db
}

func TestBackupCreateAndList(t *testing.T) {
	svc, db := newTestBackup(t)
	createTestLicense(t, db, "CS-0000-0000-0000-0400", 2, time.Now().Add(24*time.Hour))

	result, err := svc.Create()
	require.NoError(t, err)
	assert.False(t, result.Uploaded)
	assert.Greater(t, result.Size, int64(0))

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Len(t, snapshot.Tables["licenses"], 1)
	assert.Empty(t, snapshot.Tables["devices"])

	names, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	svc, db := newTestBackup(t)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0401", 2, time.Now().Add(24*time.Hour))

	result, err := svc.Create()
	require.NoError(t, err)

	// Wipe the table, then restore the snapshot
	require.NoError(t, db.Unscoped().Delete(&models.License{}, "id = ?", lic.ID).Error)
	var count int64
	require.NoError(t, db.Model(&models.License{}).Count(&count).Error)
	require.Zero(t, count)

	require.NoError(t, svc.Restore(filepath.Base(result.Path)))

	var restored models.License
	require.NoError(t, db.Where("license_key = ?", lic.Key).First(&restored).Error)
	assert.Equal(t, lic.MaxDevices, restored.MaxDevices)
}

func TestBackupRestoreUnknownFile(t *testing.T) {
	svc, _ := newTestBackup(t)
	assert.Error(t, svc.Restore("missing.json"))
}

func TestBackupListEmptyDir(t *testing.T) {
	db := newTestDB(t)
	cfg := &config.Config{}
	cfg.Backup.Dir = filepath.Join(t.TempDir(), "never-created")

	svc, err := NewBackupService(db, cfg)
	require.NoError(t, err)

	names, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
