// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNormalizesKeyPrefix(t *testing.T) {
	t.Setenv("LICENSE_KEY_PREFIX", " premium ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "PREMIUM", cfg.Admission.KeyPrefix)
}

func TestLoadRejectsBadKeyPrefix(t *testing.T) {
	for _, prefix := range []string{"X", "CS9", "TOOLONGPFX"} {
		t.Setenv("LICENSE_KEY_PREFIX", prefix)

		_, err := Load()
		assert.Error(t, err, "prefix %q", prefix)
	}
}
