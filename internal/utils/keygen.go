// internal/utils/keygen.go
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

const keySegments = 4

var keyPrefixPattern = regexp.MustCompile(`^[A-Z]{2,8}$`)

// IsLicenseKeyPrefix reports whether s is usable as a key prefix: 2 to 8
// uppercase letters, the prefix shape key validation accepts.
func IsLicenseKeyPrefix(s string) bool {
	return keyPrefixPattern.MatchString(s)
}

// GenerateLicenseKey produces a shareable key like CS-07A1-9F2E-44B0-C31D:
// the prefix plus four segments of two cryptographically random bytes in
// uppercase hex. The prefix is uppercased and must be 2 to 8 letters, the
// only shape validation admits; issuing a key outside it would create a
// license no client can ever redeem. The uniqueness constraint on the
// licenses table is the actual guarantee; a collision surfaces as a write
// error, never a silent overwrite.
func GenerateLicenseKey(prefix string) (string, error) {
	if prefix == "" {
		prefix = "CS"
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if !keyPrefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("invalid license key prefix %q: must be 2 to 8 letters", prefix)
	}

	parts := make([]string, 0, keySegments+1)
	parts = append(parts, prefix)

	for i := 0; i < keySegments; i++ {
		seg := make([]byte, 2)
		if _, err := rand.Read(seg); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		parts = append(parts, strings.ToUpper(hex.EncodeToString(seg)))
	}

	return strings.Join(parts, "-"), nil
}
