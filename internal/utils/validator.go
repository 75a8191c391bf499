// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var licenseKeyPattern = regexp.MustCompile(`^[A-Z]{2,8}(-[0-9A-F]{4}){4}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("license_key", validateLicenseKey)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// licenses look like CS-07A1-9F2E-44B0-C31D: a short prefix plus four
// uppercase hex segments.
func validateLicenseKey(fl validator.FieldLevel) bool {
	return IsLicenseKeyFormat(fl.Field().String())
}

// IsLicenseKeyFormat reports whether s has the shape of an issued key. A
// malformed key can never exist in the store, so callers may refuse it
// without a lookup.
func IsLicenseKeyFormat(s string) bool {
	return licenseKeyPattern.MatchString(s)
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "license_key":
		return "License key format is invalid"
	default:
		return e.Field() + " is invalid"
	}
}
