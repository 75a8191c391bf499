// internal/services/admission_service_test.go
package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makairamei/premium-server/internal/models"
)

func TestValidateSuccess(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	createTestLicense(t, db, "CS-AAAA-BBBB-CCCC-DDDD", 2, time.Now().Add(72*time.Hour))

	out, err := svc.Validate(ValidateInput{
		Key:      "CS-AAAA-BBBB-CCCC-DDDD",
		IP:       "203.0.113.10",
		DeviceID: "dev-1",
	})
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Equal(t, 3, out.DaysLeft)

	// Success opens a session for the caller's IP
	key, _, ok := svc.Sessions().Get("203.0.113.10")
	assert.True(t, ok)
	assert.Equal(t, "CS-AAAA-BBBB-CCCC-DDDD", key)
}

func TestValidateDaysLeftRoundsUp(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	createTestLicense(t, db, "CS-0000-0000-0000-0001", 0, time.Now().Add(25*time.Hour))

	out, err := svc.Validate(ValidateInput{Key: "CS-0000-0000-0000-0001", IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Equal(t, 2, out.DaysLeft)
}

func TestValidateUnknownKey(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)

	out, err := svc.Validate(ValidateInput{Key: "CS-DEAD-BEEF-0000-0000", IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Equal(t, ReasonNotFound, out.Reason)
}

func TestValidateKeyWithConfiguredPrefix(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)

	// Issued keys must pass admission whatever casing the prefix was
	// configured with
	lic, err := NewLicenseService(db, "premium").Create(&CreateLicenseRequest{DurationDays: 7})
	require.NoError(t, err)
	assert.Regexp(t, `^PREMIUM(-[0-9A-F]{4}){4}$`, lic.Key)

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestValidateRevoked(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0002", 0, time.Now().Add(24*time.Hour))
	require.NoError(t, db.Model(lic).Update("status", models.LicenseStatusRevoked).Error)

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, out.Reason)
}

func TestValidateRevokedWinsOverExpired(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0003", 0, time.Now().Add(-time.Hour))
	require.NoError(t, db.Model(lic).Update("status", models.LicenseStatusRevoked).Error)

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, out.Reason)

	// The revoked status is never rewritten to expired
	var stored models.License
	require.NoError(t, db.Where("license_key = ?", lic.Key).First(&stored).Error)
	assert.Equal(t, models.LicenseStatusRevoked, stored.Status)
}

func TestValidateExpiredLazyCorrection(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0004", 0, time.Now().Add(-time.Hour))

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, out.Reason)

	var stored models.License
	require.NoError(t, db.Where("license_key = ?", lic.Key).First(&stored).Error)
	assert.Equal(t, models.LicenseStatusExpired, stored.Status)

	// Re-validating an already-corrected license is idempotent
	out, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, out.Reason)
}

func TestValidateBlockedIPShortCircuits(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	security := NewSecurityService(db)
	require.NoError(t, security.BlockIP("203.0.113.66", "test"))

	// A blocked IP is denied before the key is even looked at
	out, err := svc.Validate(ValidateInput{Key: "CS-DOES-NOTX-EXIS-T000", IP: "203.0.113.66"})
	require.NoError(t, err)
	assert.Equal(t, ReasonIPBlocked, out.Reason)
}

func TestValidateLoopbackExemptFromBlocklist(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	security := NewSecurityService(db)
	require.NoError(t, security.BlockIP("127.0.0.1", "should never match"))
	createTestLicense(t, db, "CS-0000-0000-0000-0005", 0, time.Now().Add(24*time.Hour))

	out, err := svc.Validate(ValidateInput{Key: "CS-0000-0000-0000-0005", IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestDeviceCeiling(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0006", 2, time.Now().Add(24*time.Hour))

	for _, id := range []string{"dev-1", "dev-2"} {
		out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: id})
		require.NoError(t, err)
		assert.True(t, out.Valid)
	}

	// Third distinct device is over the ceiling
	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-3"})
	require.NoError(t, err)
	assert.Equal(t, ReasonMaxDevices, out.Reason)
	assert.Equal(t, 2, out.DeviceCount)
	assert.Equal(t, 2, out.MaxDevices)

	// A known device still gets in
	out, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestDeviceCeilingUnlimited(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0007", 0, time.Now().Add(24*time.Hour))

	for i := 0; i < 10; i++ {
		out, err := svc.Validate(ValidateInput{
			Key:      lic.Key,
			IP:       "203.0.113.10",
			DeviceID: fmt.Sprintf("dev-%d", i),
		})
		require.NoError(t, err)
		assert.True(t, out.Valid)
	}
}

func TestBlockedDeviceDenied(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0008", 2, time.Now().Add(24*time.Hour))

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-1"})
	require.NoError(t, err)
	require.True(t, out.Valid)

	require.NoError(t, db.Model(&models.Device{}).
		Where("license_key = ? AND device_id = ?", lic.Key, "dev-1").
		Update("is_blocked", true).Error)

	out, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, ReasonDeviceBlocked, out.Reason)
}

func TestBlockedDeviceFreesQuotaSlot(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0009", 1, time.Now().Add(24*time.Hour))

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-1"})
	require.NoError(t, err)
	require.True(t, out.Valid)

	out, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-2"})
	require.NoError(t, err)
	require.Equal(t, ReasonMaxDevices, out.Reason)

	// Blocking the first device opens its slot for a new one
	require.NoError(t, db.Model(&models.Device{}).
		Where("license_key = ? AND device_id = ?", lic.Key, "dev-1").
		Update("is_blocked", true).Error)

	out, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "dev-2"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestPlaceholderDeviceIDSkipsRegistration(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0010", 1, time.Now().Add(24*time.Hour))

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10", DeviceID: "unknown"})
	require.NoError(t, err)
	assert.True(t, out.Valid)

	var count int64
	require.NoError(t, db.Model(&models.Device{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConcurrentDeviceAdmission(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0011", 3, time.Now().Add(24*time.Hour))

	const attempts = 12
	results := make([]*Outcome, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Validate(ValidateInput{
				Key:      lic.Key,
				IP:       fmt.Sprintf("203.0.113.%d", i),
				DeviceID: fmt.Sprintf("dev-%d", i),
			})
			if assert.NoError(t, err) {
				results[i] = out
			}
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, out := range results {
		require.NotNil(t, out)
		if out.Valid {
			admitted++
		} else {
			assert.Equal(t, ReasonMaxDevices, out.Reason)
		}
	}
	assert.Equal(t, 3, admitted)

	var count int64
	require.NoError(t, db.Model(&models.Device{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestSoftDeletedLicenseInvisible(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	licSvc := NewLicenseService(db, "CS")
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0012", 0, time.Now().Add(24*time.Hour))

	require.NoError(t, licSvc.SoftDelete(lic.ID))

	out, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, out.Reason)

	require.NoError(t, licSvc.Restore(lic.ID))

	out, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestCheckSession(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0013", 0, time.Now().Add(24*time.Hour))

	// No session yet
	out, err := svc.CheckSession("203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonNoSession, out.Reason)

	_, err = svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)

	out, err = svc.CheckSession("203.0.113.10")
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Equal(t, lic.Key, out.License.Key)
}

func TestCheckSessionEvictsRevoked(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0014", 0, time.Now().Add(24*time.Hour))

	_, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)

	require.NoError(t, db.Model(lic).Update("status", models.LicenseStatusRevoked).Error)

	out, err := svc.CheckSession("203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonRevoked, out.Reason)

	// The session is gone, the next check fails closed
	out, err = svc.CheckSession("203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonNoSession, out.Reason)
}

func TestCheckSessionEvictsExpired(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0015", 0, time.Now().Add(time.Hour))

	_, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)

	// Move the admission clock past the license expiry
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	out, err := svc.CheckSession("203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, out.Reason)

	var stored models.License
	require.NoError(t, db.Where("license_key = ?", lic.Key).First(&stored).Error)
	assert.Equal(t, models.LicenseStatusExpired, stored.Status)
}

func TestCheckSessionBlockedIP(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0016", 0, time.Now().Add(24*time.Hour))

	_, err := svc.Validate(ValidateInput{Key: lic.Key, IP: "203.0.113.10"})
	require.NoError(t, err)

	security := NewSecurityService(db)
	require.NoError(t, security.BlockIP("203.0.113.10", "test"))

	out, err := svc.CheckSession("203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonIPBlocked, out.Reason)
}

func TestHeartbeatRefreshesSession(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)
	lic := createTestLicense(t, db, "CS-0000-0000-0000-0017", 0, time.Now().Add(24*time.Hour))

	out, err := svc.Heartbeat(lic.Key, "203.0.113.10")
	require.NoError(t, err)
	assert.True(t, out.Valid)

	key, _, ok := svc.Sessions().Get("203.0.113.10")
	assert.True(t, ok)
	assert.Equal(t, lic.Key, key)
}

func TestHeartbeatDenials(t *testing.T) {
	db := newTestDB(t)
	svc := newTestAdmission(t, db)

	out, err := svc.Heartbeat("CS-DOES-NOTX-EXIS-T000", "203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, out.Reason)

	lic := createTestLicense(t, db, "CS-0000-0000-0000-0018", 0, time.Now().Add(-time.Hour))
	out, err = svc.Heartbeat(lic.Key, "203.0.113.10")
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, out.Reason)

	// A denied heartbeat never opens a session
	_, _, ok := svc.Sessions().Get("203.0.113.10")
	assert.False(t, ok)
}
