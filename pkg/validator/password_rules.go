package validator

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)
)

// PasswordStrengthConfig controls the StrongPassword rule.
type PasswordStrengthConfig struct {
	MinLength      int
	MaxLength      int
	MinCharClasses int // of: uppercase, lowercase, digit, special
}

// DefaultPasswordStrength requires two character classes, trading some
// entropy for sign-up completion rates.
var DefaultPasswordStrength = PasswordStrengthConfig{
	MinLength:      8,
	MaxLength:      128,
	MinCharClasses: 2,
}

// StrongPassword validates length bounds and character-class diversity.
func StrongPassword(field, value string, cfg PasswordStrengthConfig) Rule {
	return Rule{
		Check: func() bool {
			n := utf8.RuneCountInString(value)
			if n < cfg.MinLength || (cfg.MaxLength > 0 && n > cfg.MaxLength) {
				return false
			}

			classes := 0
			if uppercaseRegex.MatchString(value) {
				classes++
			}
			if lowercaseRegex.MatchString(value) {
				classes++
			}
			if digitRegex.MatchString(value) {
				classes++
			}
			if specialCharRegex.MatchString(value) {
				classes++
			}
			return classes >= cfg.MinCharClasses
		},
		Error: ValidationError{
			Field: field,
			Message: fmt.Sprintf("must be %d-%d characters with at least %d character classes",
				cfg.MinLength, cfg.MaxLength, cfg.MinCharClasses),
			TranslationKey: "validation.password_strength",
		},
	}
}

// MatchesPolicy validates a value against a deployment-supplied policy
// pattern. A nil pattern accepts everything.
func MatchesPolicy(field, value string, pattern *regexp.Regexp) Rule {
	return Rule{
		Check: func() bool {
			return pattern == nil || pattern.MatchString(value)
		},
		Error: ValidationError{
			Field:          field,
			Message:        "does not match the required format",
			TranslationKey: "validation.pattern",
		},
	}
}
