package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxIdentifierLength bounds country codes and prediction ids.
const maxIdentifierLength = 128

// identifierRegex matches the identifiers the data source uses for countries
// ("Italy", "USA", "Czech_Republic") and prediction vintages ("bk_20200411").
var identifierRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]*$`)

// validateIdentifier rejects names that could be used for path traversal or
// injection once they are spliced into URLs, cache keys or file names.
func validateIdentifier(code Code, what, name string) error {
	if name == "" {
		return New(code, "%s cannot be empty", what)
	}
	if len(name) > maxIdentifierLength {
		return New(code, "%s too long (max %d characters)", what, maxIdentifierLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(code, "%s contains invalid control characters", what)
		}
	}
	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(code, "%s contains invalid characters: %q", what, pattern)
		}
	}
	if !identifierRegex.MatchString(name) {
		return New(code, "invalid %s: %q", what, name)
	}
	return nil
}

// ValidateCountryCode validates a country code such as "Italy" or "USA".
func ValidateCountryCode(code string) error {
	return validateIdentifier(ErrCodeInvalidCountry, "country code", code)
}

// ValidatePredictionID validates a prediction vintage id such as "bk_20200411".
func ValidatePredictionID(id string) error {
	return validateIdentifier(ErrCodeInvalidSelection, "prediction id", id)
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
