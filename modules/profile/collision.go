package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CandidateIdentifiers holds the unique identifier values a mutation is
// about to set. Nil fields are not being changed and are skipped.
type CandidateIdentifiers struct {
	Username *string
	Email    *string
	Phone    *string
}

// CollisionChecker verifies that identifier values are not already held by
// a different subject. It runs after verification succeeds and before the
// write; the read-then-write window it leaves open is closed by the user
// store's own uniqueness constraint at commit time.
type CollisionChecker struct {
	store UserStore
}

// NewCollisionChecker creates a checker over the given store.
func NewCollisionChecker(store UserStore) *CollisionChecker {
	return &CollisionChecker{store: store}
}

// Check fails with ErrIdentifierExists if any candidate identifier belongs
// to a user other than excludeSubjectID.
func (c *CollisionChecker) Check(ctx context.Context, candidates CandidateIdentifiers, excludeSubjectID uuid.UUID) error {
	type lookup struct {
		value *string
		find  func(context.Context, string) (*User, error)
	}

	lookups := []lookup{
		{candidates.Username, c.store.FindByUsername},
		{candidates.Email, c.store.FindByEmail},
		{candidates.Phone, c.store.FindByPhone},
	}

	for _, l := range lookups {
		if l.value == nil || *l.value == "" {
			continue
		}

		owner, err := l.find(ctx, *l.value)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				continue
			}
			return fmt.Errorf("failed to check identifier collision: %w", err)
		}
		if owner.ID != excludeSubjectID {
			return ErrIdentifierExists
		}
	}

	return nil
}
