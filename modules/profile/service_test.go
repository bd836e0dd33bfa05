package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	svc     *Service
	users   *MemoryUserStore
	records *MemoryVerificationStore
	emitter *captureEmitter
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		users:   NewMemoryUserStore(),
		records: NewMemoryVerificationStore(),
		emitter: newCaptureEmitter(),
	}

	allOpts := append([]Option{
		WithEmitter(env.emitter),
		WithBcryptCost(bcrypt.MinCost), // keep tests fast
	}, opts...)

	env.svc = NewService(env.users, env.records, allOpts...)
	return env
}

func (e *testEnv) seedUser(t *testing.T, mutate func(*User)) *User {
	t.Helper()

	user := &User{
		ID:        uuid.New(),
		Name:      "Test User",
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) seedRecord(t *testing.T, subjectID uuid.UUID, scope, target string) *VerificationRecord {
	t.Helper()

	record := &VerificationRecord{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Method:    MethodCodeProof,
		Target:    target,
		Scope:     scope,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, e.records.Create(context.Background(), record))
	return record
}

func authCtx(subjectID uuid.UUID, granted ...string) context.Context {
	return WithAuth(context.Background(), AuthContext{SubjectID: subjectID, Scopes: granted})
}

func strptr(s string) *string { return &s }

func TestService_Authentication(t *testing.T) {
	t.Parallel()

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		_, err := env.svc.GetProfile(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)

		err = env.svc.ChangePassword(context.Background(), "N3wPassword!")
		assert.ErrorIs(t, err, ErrUnauthorized)

		err = env.svc.DeleteEmail(context.Background())
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects unknown subject", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)

		_, err := env.svc.GetProfile(authCtx(uuid.New()))
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("updates name, avatar and custom data", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		ctx := authCtx(user.ID, ScopeProfile, ScopeProfileCustomData)
		p, err := env.svc.UpdateProfile(ctx, UpdateProfileParams{
			Name:       strptr("  Alice   Example "),
			Avatar:     strptr(" https://cdn.example.com/a.png "),
			CustomData: map[string]any{"locale": "en"},
		})
		require.NoError(t, err)

		assert.Equal(t, "Alice Example", p.Name)
		assert.Equal(t, "https://cdn.example.com/a.png", p.Avatar)
		assert.Equal(t, map[string]any{"locale": "en"}, p.CustomData)

		ev, ok := env.emitter.wait(time.Second)
		require.True(t, ok, "expected a change notification")
		assert.Equal(t, EventUserDataUpdated, ev.Event)
		assert.Equal(t, "Alice Example", ev.User.Name)
	})

	t.Run("sets username without verification", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		p, err := env.svc.UpdateProfile(authCtx(user.ID), UpdateProfileParams{
			Username: strptr("Bob_42"),
		})
		require.NoError(t, err)
		require.NotNil(t, p.Username)
		assert.Equal(t, "bob_42", *p.Username, "username is normalized to lowercase")
	})

	t.Run("rejects username held by another user", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedUser(t, func(u *User) { u.Username = strptr("bob") })
		victim := env.seedUser(t, func(u *User) { u.Username = strptr("carol") })

		_, err := env.svc.UpdateProfile(authCtx(victim.ID), UpdateProfileParams{
			Username: strptr("bob"),
		})
		assert.ErrorIs(t, err, ErrIdentifierExists)

		stored, err := env.users.GetByID(context.Background(), victim.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.Username)
		assert.Equal(t, "carol", *stored.Username, "username must be unchanged after collision")
	})

	t.Run("keeping own username is not a collision", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, func(u *User) { u.Username = strptr("dave") })

		_, err := env.svc.UpdateProfile(authCtx(user.ID), UpdateProfileParams{
			Username: strptr("dave"),
		})
		assert.NoError(t, err)
	})

	t.Run("rejects malformed username", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		_, err := env.svc.UpdateProfile(authCtx(user.ID), UpdateProfileParams{
			Username: strptr("x"),
		})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrIdentifierExists)
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Parallel()

	hash := func(t *testing.T, password string) []byte {
		t.Helper()
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		return h
	}

	t.Run("session path changes the password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, func(u *User) {
			u.PasswordHash = hash(t, "OldPassword1")
			u.PasswordAlgorithm = AlgorithmBcrypt
		})

		require.NoError(t, env.svc.ChangePassword(authCtx(user.ID), "NewPassword2"))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("NewPassword2")))
		assert.Equal(t, AlgorithmBcrypt, stored.PasswordAlgorithm)
	})

	t.Run("rejects identical password and leaves hash unchanged", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		originalHash := hash(t, "SamePassword1")
		user := env.seedUser(t, func(u *User) {
			u.PasswordHash = originalHash
			u.PasswordAlgorithm = AlgorithmBcrypt
		})

		err := env.svc.ChangePassword(authCtx(user.ID), "SamePassword1")
		assert.ErrorIs(t, err, ErrSamePassword)

		stored, lookupErr := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, lookupErr)
		assert.Equal(t, originalHash, stored.PasswordHash, "stored hash must be unchanged")
	})

	t.Run("rejects weak password", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		err := env.svc.ChangePassword(authCtx(user.ID), "short")
		assert.Error(t, err)
	})

	t.Run("verified path requires a usable record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		err := env.svc.ChangePasswordVerified(authCtx(user.ID), "NewPassword2", uuid.New())
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})

	t.Run("verified path consumes the record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeChangePassword, "")

		require.NoError(t, env.svc.ChangePasswordVerified(authCtx(user.ID), "NewPassword2", record.ID))

		// Reusing the consumed record must fail validation.
		err := env.svc.ChangePasswordVerified(authCtx(user.ID), "AnotherPassword3", record.ID)
		assert.ErrorIs(t, err, ErrRecordConsumed)
	})

	t.Run("rejects record with wrong scope", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetEmail, "a@x.com")

		err := env.svc.ChangePasswordVerified(authCtx(user.ID), "NewPassword2", record.ID)
		assert.ErrorIs(t, err, ErrRecordScopeMismatch)
	})

	t.Run("rejects another subject's record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		owner := env.seedUser(t, nil)
		thief := env.seedUser(t, nil)
		record := env.seedRecord(t, owner.ID, ScopeChangePassword, "")

		err := env.svc.ChangePasswordVerified(authCtx(thief.ID), "NewPassword2", record.ID)
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestService_Email(t *testing.T) {
	t.Parallel()

	t.Run("sets email with record proving the new address", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetEmail, "a@x.com")

		require.NoError(t, env.svc.SetEmail(authCtx(user.ID), "a@x.com", record.ID))

		p, err := env.svc.GetProfile(authCtx(user.ID))
		require.NoError(t, err)
		require.NotNil(t, p.PrimaryEmail)
		assert.Equal(t, "a@x.com", *p.PrimaryEmail)
	})

	t.Run("sets email with record proving the current address", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, func(u *User) { u.PrimaryEmail = strptr("old@x.com") })
		record := env.seedRecord(t, user.ID, ScopeSetEmail, "old@x.com")

		require.NoError(t, env.svc.SetEmail(authCtx(user.ID), "new@x.com", record.ID))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.PrimaryEmail)
		assert.Equal(t, "new@x.com", *stored.PrimaryEmail)
	})

	t.Run("rejects record proving an unrelated address", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetEmail, "other@x.com")

		err := env.svc.SetEmail(authCtx(user.ID), "a@x.com", record.ID)
		assert.ErrorIs(t, err, ErrRecordScopeMismatch)
	})

	t.Run("rejects expired record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := &VerificationRecord{
			ID:        uuid.New(),
			SubjectID: user.ID,
			Method:    MethodCodeProof,
			Target:    "a@x.com",
			Scope:     ScopeSetEmail,
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, env.records.Create(context.Background(), record))

		err := env.svc.SetEmail(authCtx(user.ID), "a@x.com", record.ID)
		assert.ErrorIs(t, err, ErrRecordExpired)
	})

	t.Run("rejects email owned by another user", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedUser(t, func(u *User) { u.PrimaryEmail = strptr("taken@x.com") })
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetEmail, "taken@x.com")

		err := env.svc.SetEmail(authCtx(user.ID), "taken@x.com", record.ID)
		assert.ErrorIs(t, err, ErrIdentifierExists)

		stored, lookupErr := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, lookupErr)
		assert.Nil(t, stored.PrimaryEmail, "email must be unchanged after collision")
	})

	t.Run("normalizes the address before validation and storage", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetEmail, "alice@x.com")

		require.NoError(t, env.svc.SetEmail(authCtx(user.ID), "  Alice@X.COM ", record.ID))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.PrimaryEmail)
		assert.Equal(t, "alice@x.com", *stored.PrimaryEmail)
	})

	t.Run("deleting an absent email fails and changes nothing", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		err := env.svc.DeleteEmail(authCtx(user.ID))
		assert.ErrorIs(t, err, ErrEmailNotExists)

		stored, lookupErr := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, lookupErr)
		assert.Nil(t, stored.PrimaryEmail)
	})

	t.Run("deletes an existing email", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, func(u *User) { u.PrimaryEmail = strptr("a@x.com") })

		require.NoError(t, env.svc.DeleteEmail(authCtx(user.ID)))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.PrimaryEmail)
	})
}

func TestService_Phone(t *testing.T) {
	t.Parallel()

	t.Run("sets phone with a usable record", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetPhone, "+15551230000")

		require.NoError(t, env.svc.SetPhone(authCtx(user.ID), "+1 (555) 123-0000", record.ID))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.PrimaryPhone)
		assert.Equal(t, "+15551230000", *stored.PrimaryPhone)
	})

	t.Run("rejects phone owned by another user", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.seedUser(t, func(u *User) { u.PrimaryPhone = strptr("+15551230000") })
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeSetPhone, "+15551230000")

		err := env.svc.SetPhone(authCtx(user.ID), "+15551230000", record.ID)
		assert.ErrorIs(t, err, ErrIdentifierExists)
	})

	t.Run("deleting an absent phone fails", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		err := env.svc.DeletePhone(authCtx(user.ID))
		assert.ErrorIs(t, err, ErrPhoneNotExists)
	})
}

func TestService_Identities(t *testing.T) {
	t.Parallel()

	t.Run("links an identity through the connector", func(t *testing.T) {
		t.Parallel()

		connector := NewMockConnector("google")
		connector.On("Exchange", mock.Anything, map[string]string{"code": "abc"}).
			Return(&SocialProfile{UserID: "g-123", Email: "a@gmail.com", Name: "Alice"}, nil)

		env := newTestEnv(t, WithConnectors(connector))
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeLinkIdentity, "google")

		require.NoError(t, env.svc.LinkIdentity(authCtx(user.ID), "google", map[string]string{"code": "abc"}, record.ID))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.Contains(t, stored.Identities, "google")
		assert.Equal(t, "g-123", stored.Identities["google"].UserID)

		connector.AssertExpectations(t)
	})

	t.Run("last write wins per target", func(t *testing.T) {
		t.Parallel()

		connector := NewMockConnector("google")
		connector.On("Exchange", mock.Anything, mock.Anything).
			Return(&SocialProfile{UserID: "g-456"}, nil)

		env := newTestEnv(t, WithConnectors(connector))
		user := env.seedUser(t, func(u *User) {
			u.Identities = map[string]Identity{"google": {UserID: "g-123"}}
		})
		record := env.seedRecord(t, user.ID, ScopeLinkIdentity, "google")

		require.NoError(t, env.svc.LinkIdentity(authCtx(user.ID), "google", map[string]string{"code": "xyz"}, record.ID))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "g-456", stored.Identities["google"].UserID)
	})

	t.Run("surfaces connector exchange failures", func(t *testing.T) {
		t.Parallel()

		connector := NewMockConnector("google")
		connector.On("Exchange", mock.Anything, mock.Anything).
			Return(nil, errors.New("provider is down"))

		env := newTestEnv(t, WithConnectors(connector))
		user := env.seedUser(t, nil)
		record := env.seedRecord(t, user.ID, ScopeLinkIdentity, "google")

		err := env.svc.LinkIdentity(authCtx(user.ID), "google", map[string]string{"code": "abc"}, record.ID)
		assert.ErrorIs(t, err, ErrUpstreamFailure)

		stored, lookupErr := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, lookupErr)
		assert.Empty(t, stored.Identities, "no identity must be linked after a failed exchange")
	})

	t.Run("rejects unknown connector", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		err := env.svc.LinkIdentity(authCtx(user.ID), "nope", nil, uuid.New())
		assert.ErrorIs(t, err, ErrConnectorNotFound)
	})

	t.Run("unlinks a linked identity", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, func(u *User) {
			u.Identities = map[string]Identity{"github": {UserID: "gh-1"}}
		})

		require.NoError(t, env.svc.UnlinkIdentity(authCtx(user.ID), "github"))

		stored, err := env.users.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.NotContains(t, stored.Identities, "github")
	})

	t.Run("unlinking an absent identity fails", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		user := env.seedUser(t, nil)

		err := env.svc.UnlinkIdentity(authCtx(user.ID), "github")
		assert.ErrorIs(t, err, ErrIdentityNotExists)
	})
}

func TestService_RecordSingleUseAcrossOperations(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	user := env.seedUser(t, nil)
	record := env.seedRecord(t, user.ID, ScopeSetEmail, "a@x.com")

	require.NoError(t, env.svc.SetEmail(authCtx(user.ID), "a@x.com", record.ID))

	// The record was consumed by the successful mutation; any reuse fails.
	err := env.svc.SetEmail(authCtx(user.ID), "a@x.com", record.ID)
	assert.ErrorIs(t, err, ErrRecordConsumed)
}
