// Package sanitizer normalizes user-supplied identifiers before validation
// and storage so that equality comparisons and uniqueness checks are stable.
package sanitizer

import (
	"regexp"
	"strings"
)

var (
	dotRegex        = regexp.MustCompile(`\.{2,}`)
	nonPhoneRegex   = regexp.MustCompile(`[^\d+]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// CollapseWhitespace trims and collapses internal whitespace runs to a
// single space. Used for display names.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// NormalizeEmail lowercases the address and consolidates consecutive dots in
// the local part. Invalid shapes are returned lowercased but otherwise
// untouched so validation can reject them with the original value visible.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	local := dotRegex.ReplaceAllString(parts[0], ".")
	local = strings.Trim(local, ".")

	return local + "@" + parts[1]
}

// NormalizePhone strips formatting characters, keeping digits and a leading
// plus sign.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return phone
	}

	plus := strings.HasPrefix(phone, "+")
	digits := nonPhoneRegex.ReplaceAllString(phone, "")
	digits = strings.ReplaceAll(digits, "+", "")
	if plus {
		return "+" + digits
	}
	return digits
}

// NormalizeUsername lowercases and trims a username candidate.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
