package profile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	t.Parallel()

	user := &User{
		ID:           uuid.New(),
		Username:     strptr("alice"),
		PrimaryEmail: strptr("alice@x.com"),
		PrimaryPhone: strptr("+15551230000"),
		Name:         "Alice",
		Avatar:       "https://cdn.example.com/a.png",
		Address:      &Address{Locality: "Berlin", Country: "DE"},
		CustomData:   map[string]any{"locale": "en"},
		Identities:   map[string]Identity{"google": {UserID: "g-1"}},
		CreatedAt:    time.Now().UTC(),
	}

	t.Run("base scope exposes only base fields", func(t *testing.T) {
		t.Parallel()

		p := Project(user, []string{ScopeProfile})

		assert.Equal(t, user.ID, p.ID)
		assert.Equal(t, "alice", *p.Username)
		assert.Equal(t, "alice@x.com", *p.PrimaryEmail)
		assert.Equal(t, "+15551230000", *p.PrimaryPhone)
		assert.Nil(t, p.Address)
		assert.Nil(t, p.CustomData)
		assert.Nil(t, p.Identities)
	})

	t.Run("each narrow scope unlocks its field set", func(t *testing.T) {
		t.Parallel()

		p := Project(user, []string{ScopeProfile, ScopeProfileAddress})
		assert.NotNil(t, p.Address)
		assert.Equal(t, "Berlin", p.Address.Locality)
		assert.Nil(t, p.Identities)

		p = Project(user, []string{ScopeProfile, ScopeProfileIdentities})
		assert.Contains(t, p.Identities, "google")
		assert.Nil(t, p.CustomData)

		p = Project(user, []string{ScopeProfile, ScopeProfileCustomData})
		assert.Equal(t, map[string]any{"locale": "en"}, p.CustomData)
	})

	t.Run("wildcard grants everything", func(t *testing.T) {
		t.Parallel()

		p := Project(user, []string{"*"})
		assert.NotNil(t, p.Address)
		assert.NotNil(t, p.CustomData)
		assert.NotNil(t, p.Identities)
	})

	t.Run("namespace wildcard covers the narrow scopes", func(t *testing.T) {
		t.Parallel()

		p := Project(user, []string{"profile.*"})
		assert.NotNil(t, p.Address)
		assert.NotNil(t, p.CustomData)
		assert.NotNil(t, p.Identities)
	})

	t.Run("projection does not alias the user record", func(t *testing.T) {
		t.Parallel()

		p := Project(user, []string{ScopeProfileCustomData})
		p.CustomData["locale"] = "de"
		assert.Equal(t, "en", user.CustomData["locale"])
	})
}
