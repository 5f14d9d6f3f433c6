package errors

import (
	"strings"
	"unicode"
)

// ValidateFamilyName validates a family file name for safety and correctness.
// It rejects names that could be used for path traversal when the family
// auto-loader resolves them against the bundled content directory.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidateFamilyName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFamily, "family name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidFamily, "family name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFamily, "family name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidFamily, "family name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateDocumentKey validates a document key used to address the
// per-document settings store.
func ValidateDocumentKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "document key cannot be empty")
	}
	if len(key) > 500 {
		return New(ErrCodeInvalidInput, "document key too long (max 500 characters)")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "document key contains invalid control characters")
		}
	}
	return nil
}
