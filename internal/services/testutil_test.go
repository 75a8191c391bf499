// internal/services/testutil_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/makairamei/premium-server/internal/models"
	"github.com/makairamei/premium-server/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes
	// concurrent test writers.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Admin{},
		&models.License{},
		&models.Device{},
		&models.BlockedIP{},
		&models.FailedLogin{},
		&models.AccessLog{},
		&models.PluginUsage{},
		&models.PlaybackLog{},
		&models.Setting{},
	))

	return db
}

func newTestAdmission(t *testing.T, db *gorm.DB) *AdmissionService {
	t.Helper()
	sessions := NewSessionCache(DefaultSessionTTL, 0)
	t.Cleanup(sessions.Close)
	return NewAdmissionService(db, sessions, NewSecurityService(db))
}

func testPagination() utils.PaginationParams {
	return utils.PaginationParams{Page: 1, Limit: 50, Sort: "created_at", Order: "desc"}
}

func createTestLicense(t *testing.T, db *gorm.DB, key string, maxDevices int, expiresAt time.Time) *models.License {
	t.Helper()
	lic := &models.License{
		Key:        key,
		Name:       "test",
		Status:     models.LicenseStatusActive,
		ExpiresAt:  expiresAt,
		MaxDevices: maxDevices,
	}
	require.NoError(t, db.Create(lic).Error)
	return lic
}
