package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/accountkit/accountkit/pkg/scopes"
)

// Capability scopes controlling which profile fields a caller may read.
// ScopeProfile grants the base fields; the narrower grants each unlock one
// guarded field set.
const (
	ScopeProfile           = "profile"
	ScopeProfileAddress    = "profile.address"
	ScopeProfileIdentities = "profile.identities"
	ScopeProfileCustomData = "profile.custom_data"
)

// Profile is the scope-filtered projection of a User returned by the API.
// Guarded fields are omitted entirely rather than nulled so callers cannot
// distinguish "absent" from "not visible".
type Profile struct {
	ID           uuid.UUID           `json:"id"`
	Username     *string             `json:"username,omitempty"`
	PrimaryEmail *string             `json:"primaryEmail,omitempty"`
	PrimaryPhone *string             `json:"primaryPhone,omitempty"`
	Name         string              `json:"name,omitempty"`
	Avatar       string              `json:"avatar,omitempty"`
	Address      *Address            `json:"address,omitempty"`
	CustomData   map[string]any      `json:"customData,omitempty"`
	Identities   map[string]Identity `json:"identities,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Project maps a user record onto the fields the granted scopes authorize.
// The capability-to-field mapping is explicit here and nowhere else; route
// handlers never redact fields themselves.
func Project(user *User, granted []string) Profile {
	u := user.Clone()

	p := Profile{
		ID:           u.ID,
		Username:     u.Username,
		PrimaryEmail: u.PrimaryEmail,
		PrimaryPhone: u.PrimaryPhone,
		Name:         u.Name,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}

	if scopes.Has(granted, ScopeProfileAddress) {
		p.Address = u.Address
	}
	if scopes.Has(granted, ScopeProfileIdentities) {
		p.Identities = u.Identities
	}
	if scopes.Has(granted, ScopeProfileCustomData) {
		p.CustomData = u.CustomData
	}

	return p
}
