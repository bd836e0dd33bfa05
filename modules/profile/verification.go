package profile

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

// VerificationMethod identifies how the subject proved control.
type VerificationMethod string

const (
	// MethodPasswordProof means the subject re-entered their password.
	MethodPasswordProof VerificationMethod = "password"
	// MethodCodeProof means the subject entered a one-time code delivered to
	// the identifier being proven.
	MethodCodeProof VerificationMethod = "code"
)

// Verification scopes bind a record to one class of mutation. A record
// minted for an email change cannot authorize a password change.
const (
	ScopeChangePassword = "verification.change_password"
	ScopeSetEmail       = "verification.set_email"
	ScopeSetPhone       = "verification.set_phone"
	ScopeLinkIdentity   = "verification.link_identity"
)

// VerificationRecord asserts that a subject has proven control of a
// credential or identifier. It is minted by the verification-initiation flow
// and consumed at most once by a successful mutation.
type VerificationRecord struct {
	ID        uuid.UUID          `json:"id"`
	SubjectID uuid.UUID          `json:"subjectId"`
	Method    VerificationMethod `json:"method"`
	Target    string             `json:"target,omitempty"` // the proven identifier value
	Scope     string             `json:"scope"`
	Consumed  bool               `json:"consumed"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// UsableFor reports whether the record authorizes an operation with the
// given scope against one of the allowed targets. A record is usable only
// while unconsumed and unexpired. Records carrying no target (password
// proofs) match any target; target-bound records must have proven one of the
// allowed values, which for an email change is either the current address or
// the new one.
func (r *VerificationRecord) UsableFor(scope string, allowedTargets ...string) error {
	if r.Consumed {
		return ErrRecordConsumed
	}
	if time.Now().After(r.ExpiresAt) {
		return ErrRecordExpired
	}
	if r.Scope != scope {
		return ErrRecordScopeMismatch
	}
	if r.Target != "" && len(allowedTargets) > 0 && !slices.Contains(allowedTargets, r.Target) {
		return ErrRecordScopeMismatch
	}
	return nil
}

// VerificationStore holds verification records.
//
// Consume must be atomic with respect to its check-then-mark sequence: two
// concurrent requests presenting the same record must not both succeed. The
// second consume attempt fails with ErrRecordConsumed.
type VerificationStore interface {
	// Create stores a record until its expiry. Used by the
	// verification-initiation flow and by tests.
	Create(ctx context.Context, record *VerificationRecord) error

	// Resolve returns the record with the given id owned by the subject.
	// Records owned by other subjects resolve as ErrRecordNotFound so a
	// record id leaks nothing across subjects.
	Resolve(ctx context.Context, recordID, subjectID uuid.UUID) (*VerificationRecord, error)

	// Consume marks a record consumed exactly once (compare-and-swap).
	Consume(ctx context.Context, recordID uuid.UUID) error
}
