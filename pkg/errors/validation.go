package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	// Check for control characters and null bytes
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// attrPathRegex matches nixpkgs attribute paths such as "hello" or
// "python312Packages.requests".
var attrPathRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_'+-]*(\.[A-Za-z_][A-Za-z0-9_'+-]*)*$`)

// ValidateAttrPath validates a nixpkgs attribute path.
func ValidateAttrPath(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if !attrPathRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid attribute path: %q", name)
	}

	return nil
}

// ValidateGitURL validates a repository URL that is interpolated into a nix
// expression. Quotes, backslashes and antiquotation markers are rejected.
func ValidateGitURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "git url cannot be empty")
	}

	schemes := []string{"https://", "http://", "ssh://", "git://", "file://"}
	ok := false
	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s) {
			ok = true
			break
		}
	}
	if !ok {
		return New(ErrCodeInvalidInput, "git url must use one of: https, http, ssh, git, file")
	}

	return validateNixString("git url", rawURL)
}

// ValidateRevision validates a git ref or revision.
func ValidateRevision(rev string) error {
	if rev == "" {
		return New(ErrCodeInvalidInput, "revision cannot be empty")
	}
	if strings.ContainsAny(rev, " \t") {
		return New(ErrCodeInvalidInput, "revision cannot contain whitespace")
	}
	return validateNixString("revision", rev)
}

func validateNixString(what, s string) error {
	for _, r := range s {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", what)
		}
	}
	if strings.ContainsAny(s, `"\`) || strings.Contains(s, "${") {
		return New(ErrCodeInvalidInput, "%s contains characters not allowed in a nix string", what)
	}
	return nil
}
