package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates an RPM package name for safety and correctness.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", name)
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// binaryLabelRegex matches "@Name", "@Name+flavor", "@Name-purpose" and
// "@Name+flavor-purpose".
var binaryLabelRegex = regexp.MustCompile(`^@[A-Za-z0-9_.]+(\+[A-Za-z0-9_.]+)?(-[A-Za-z0-9_.]+)?$`)

// plainLabelRegex matches component, build config and auto label names.
var plainLabelRegex = regexp.MustCompile(`^[A-Za-z0-9_.]+(/[A-Za-z0-9_.]+)?$`)

// ValidateLabelName validates a label name. Binary labels start with "@";
// everything else is a component, build config ("Core/standard") or auto
// label name.
func ValidateLabelName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidLabel, "label name cannot be empty")
	}
	if strings.HasPrefix(name, "@") {
		if !binaryLabelRegex.MatchString(name) {
			return New(ErrCodeInvalidLabel, "invalid binary label name: %q", name)
		}
		return nil
	}
	if !plainLabelRegex.MatchString(name) {
		return New(ErrCodeInvalidLabel, "invalid label name: %q", name)
	}
	return nil
}
