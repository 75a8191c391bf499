// internal/services/audit_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makairamei/premium-server/internal/models"
)

func TestAuditList(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db)

	entries := []models.AccessLog{
		{LicenseKey: "CS-0000-0000-0000-0500", Action: "VALIDATE_OK", IPAddress: "203.0.113.10"},
		{LicenseKey: "CS-0000-0000-0000-0500", Action: "VALIDATE_FAIL", IPAddress: "203.0.113.11", Details: "not_found"},
		{LicenseKey: "CS-0000-0000-0000-0501", Action: "REPO_ACCESS", IPAddress: "203.0.113.10"},
	}
	for i := range entries {
		require.NoError(t, db.Create(&entries[i]).Error)
	}

	logs, total, err := svc.List(AccessLogSearchParams{PaginationParams: testPagination()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)

	// Filter by action
	logs, total, err = svc.List(AccessLogSearchParams{
		PaginationParams: testPagination(),
		Action:           "VALIDATE_FAIL",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "not_found", logs[0].Details)
}

func TestAuditRecentForLicense(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.AccessLog{
			LicenseKey: "CS-0000-0000-0000-0502", Action: "VALIDATE_OK",
		}).Error)
	}
	require.NoError(t, db.Create(&models.AccessLog{
		LicenseKey: "CS-0000-0000-0000-0503", Action: "VALIDATE_OK",
	}).Error)

	logs, err := svc.RecentForLicense("CS-0000-0000-0000-0502", 2)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
