package profile

import "errors"

// Authentication and lookup errors.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserNotFound = errors.New("user not found")
)

// Verification record errors. All four surface to the API as an invalid
// verification, but stay distinct so callers and logs can tell a replayed
// record from a stale one.
var (
	ErrRecordNotFound      = errors.New("verification record not found")
	ErrRecordExpired       = errors.New("verification record expired")
	ErrRecordConsumed      = errors.New("verification record already consumed")
	ErrRecordScopeMismatch = errors.New("verification record not valid for this operation")
)

// Mutation errors.
var (
	ErrIdentifierExists  = errors.New("identifier already taken by another user")
	ErrSamePassword      = errors.New("new password is identical to the current one")
	ErrEmailNotExists    = errors.New("user has no email set")
	ErrPhoneNotExists    = errors.New("user has no phone set")
	ErrIdentityNotExists = errors.New("identity is not linked")
	ErrConnectorNotFound = errors.New("unknown connector")
	ErrUpstreamFailure   = errors.New("social connector exchange failed")
)

// IsVerificationError reports whether err belongs to the verification record
// failure class.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrRecordExpired) ||
		errors.Is(err, ErrRecordConsumed) ||
		errors.Is(err, ErrRecordScopeMismatch)
}
