package errors

import (
	"strings"
	"unicode"
)

// ValidateProjectID validates a project identifier for safety. Project IDs
// end up in file names and storage keys, so the rules are conservative:
//   - No empty IDs
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateProjectID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidProject, "project ID cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidProject, "project ID too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidProject, "project ID contains control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
		":",    // Storage key separator
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidProject, "project ID contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateMode validates a trigger mode string.
func ValidateMode(mode string) error {
	switch mode {
	case "auto", "manual":
		return nil
	case "":
		return New(ErrCodeInvalidMode, "mode cannot be empty")
	default:
		return New(ErrCodeInvalidMode, "mode must be %q or %q, got %q", "auto", "manual", mode)
	}
}

// ValidateNodeName validates a node display name.
//   - Maximum length of 256 characters
//   - No control characters
//
// An empty name is valid; it falls back to the node's kind tag.
func ValidateNodeName(name string) error {
	if len(name) > 256 {
		return New(ErrCodeInvalidNode, "node name too long (max 256 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidNode, "node name contains control characters")
		}
	}
	return nil
}
