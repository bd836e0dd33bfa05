package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// International phone format with optional leading plus (E.164-ish).
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

	// Usernames: lowercase letters, digits, underscore, 3-30 chars, must
	// start with a letter.
	usernameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{2,29}$`)
)

// Required validates that a string is non-empty after trimming.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:          field,
			Message:        "is required",
			TranslationKey: "validation.required",
		},
	}
}

// MaxLen validates that a string does not exceed max runes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) <= max
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters", max),
			TranslationKey: "validation.max_length",
		},
	}
}

// ValidEmail validates an RFC 5322 address with additional constraints that
// matter for deliverability (dotted, non-empty domain).
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}

			addr, err := mail.ParseAddress(value)
			if err != nil {
				return false
			}

			parts := strings.Split(addr.Address, "@")
			if len(parts) != 2 || parts[0] == "" {
				return false
			}

			domain := parts[1]
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}

			return true
		},
		Error: ValidationError{
			Field:          field,
			Message:        "must be a valid email address",
			TranslationKey: "validation.email",
		},
	}
}

// ValidPhone validates an international phone number.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return phoneRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:          field,
			Message:        "must be a valid phone number",
			TranslationKey: "validation.phone",
		},
	}
}

// ValidUsername validates the username shape used for unique handles.
func ValidUsername(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return usernameRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:          field,
			Message:        "must be 3-30 lowercase letters, digits or underscores, starting with a letter",
			TranslationKey: "validation.username",
		},
	}
}
