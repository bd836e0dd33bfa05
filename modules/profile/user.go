package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Password hashing algorithm tags stored alongside the hash so records
// hashed under an older scheme remain verifiable.
const (
	AlgorithmBcrypt = "bcrypt"
)

// User is the identity record. Username, PrimaryEmail and PrimaryPhone are
// globally unique when present. The record is mutated only through Service;
// users are never deleted by this module.
type User struct {
	ID                uuid.UUID
	Username          *string
	PrimaryEmail      *string
	PrimaryPhone      *string
	PasswordHash      []byte
	PasswordAlgorithm string
	Name              string
	Avatar            string
	Address           *Address
	CustomData        map[string]any
	Identities        map[string]Identity // keyed by connector target, e.g. "google"
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Address is visible only to callers holding the address scope.
type Address struct {
	Formatted     string `json:"formatted,omitempty"`
	StreetAddress string `json:"streetAddress,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	Country       string `json:"country,omitempty"`
}

// Identity is a federated identity linked through a social connector.
type Identity struct {
	UserID  string         `json:"userId"` // provider-side subject id
	Details map[string]any `json:"details,omitempty"`
}

// Clone returns a deep copy so stores and projections never alias the maps
// of a record under mutation.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	out := *u
	out.Username = clonePtr(u.Username)
	out.PrimaryEmail = clonePtr(u.PrimaryEmail)
	out.PrimaryPhone = clonePtr(u.PrimaryPhone)
	if u.PasswordHash != nil {
		out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	if u.Address != nil {
		addr := *u.Address
		out.Address = &addr
	}
	if u.CustomData != nil {
		out.CustomData = make(map[string]any, len(u.CustomData))
		for k, v := range u.CustomData {
			out.CustomData[k] = v
		}
	}
	if u.Identities != nil {
		out.Identities = make(map[string]Identity, len(u.Identities))
		for k, v := range u.Identities {
			out.Identities[k] = v
		}
	}
	return &out
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// UserStore is the persistence contract for identity records. Update must be
// atomic: either every field of the record is persisted or none are, and it
// must return ErrIdentifierExists when a unique identifier is already held
// by another user. That constraint is the last-resort defense against two
// concurrent requests claiming the same identifier between the collision
// pre-check and the write.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	Update(ctx context.Context, user *User) error
}
