// internal/utils/input.go
package utils

import "strings"

const maxInputLength = 500

// CleanInput trims and caps free-form client strings before they reach the
// store or the logs.
func CleanInput(val string) string {
	val = strings.TrimSpace(val)
	if len(val) > maxInputLength {
		val = val[:maxInputLength]
	}
	return val
}

// NormalizeDeviceField maps obvious client-side placeholders to empty so a
// literal "unknown" never becomes a distinct device identity.
func NormalizeDeviceField(val string) string {
	val = CleanInput(val)
	switch strings.ToLower(val) {
	case "unknown", "null", "undefined", "n/a":
		return ""
	}
	return val
}
