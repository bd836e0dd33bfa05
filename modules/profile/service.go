package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/accountkit/accountkit/pkg/sanitizer"
	"github.com/accountkit/accountkit/pkg/validator"
)

// Service orchestrates profile mutations. Every operation walks the guarded
// sequence documented in the package comment; a failure at any step returns
// before the store write, so there is never a partially applied mutation.
type Service struct {
	store            UserStore
	records          VerificationStore
	collision        *CollisionChecker
	emitter          Emitter
	connectors       map[string]Connector
	logger           *slog.Logger
	bcryptCost       int
	passwordPolicy   *regexp.Regexp
	passwordStrength validator.PasswordStrengthConfig
	emitTimeout      time.Duration
}

// Option configures the service during construction.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBcryptCost sets the bcrypt cost for password hashing.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithPasswordPolicy sets a deployment-supplied pattern new passwords must
// match in addition to the strength requirements.
func WithPasswordPolicy(pattern *regexp.Regexp) Option {
	return func(s *Service) { s.passwordPolicy = pattern }
}

// WithPasswordStrength overrides the default strength requirements.
func WithPasswordStrength(cfg validator.PasswordStrengthConfig) Option {
	return func(s *Service) { s.passwordStrength = cfg }
}

// WithEmitter sets the change-notification emitter.
func WithEmitter(emitter Emitter) Option {
	return func(s *Service) {
		if emitter != nil {
			s.emitter = emitter
		}
	}
}

// WithConnectors registers social connectors by their provider target.
func WithConnectors(connectors ...Connector) Option {
	return func(s *Service) {
		for _, c := range connectors {
			s.connectors[c.Target()] = c
		}
	}
}

// NewService creates a profile service over the given stores.
func NewService(store UserStore, records VerificationStore, opts ...Option) *Service {
	s := &Service{
		store:            store,
		records:          records,
		collision:        NewCollisionChecker(store),
		emitter:          NoopEmitter{},
		connectors:       make(map[string]Connector),
		logger:           slog.New(slog.DiscardHandler),
		bcryptCost:       bcrypt.DefaultCost,
		passwordStrength: validator.DefaultPasswordStrength,
		emitTimeout:      10 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetProfile returns the caller's profile filtered by their granted scopes.
// Reads never require verification.
func (s *Service) GetProfile(ctx context.Context) (Profile, error) {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return Profile{}, err
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return Profile{}, err
	}

	return Project(user, auth.Scopes), nil
}

// UpdateProfileParams carries the non-sensitive fields of a simple profile
// update. Nil fields are left unchanged; a non-nil CustomData replaces the
// stored custom data wholesale.
type UpdateProfileParams struct {
	Name       *string
	Avatar     *string
	Username   *string
	CustomData map[string]any
}

// UpdateProfile applies a simple update. No verification record is required,
// but a username change still runs the collision check.
func (s *Service) UpdateProfile(ctx context.Context, params UpdateProfileParams) (Profile, error) {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return Profile{}, err
	}

	var username *string
	if params.Username != nil {
		u := sanitizer.NormalizeUsername(*params.Username)
		if err := validator.Apply(validator.ValidUsername("username", u)); err != nil {
			return Profile{}, err
		}
		username = &u
	}
	if params.Name != nil {
		if err := validator.Apply(validator.MaxLen("name", *params.Name, 128)); err != nil {
			return Profile{}, err
		}
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return Profile{}, err
	}

	if username != nil {
		if err := s.collision.Check(ctx, CandidateIdentifiers{Username: username}, auth.SubjectID); err != nil {
			return Profile{}, err
		}
		user.Username = username
	}
	if params.Name != nil {
		user.Name = sanitizer.CollapseWhitespace(*params.Name)
	}
	if params.Avatar != nil {
		user.Avatar = sanitizer.Trim(*params.Avatar)
	}
	if params.CustomData != nil {
		user.CustomData = params.CustomData
	}

	if err := s.commit(ctx, user, uuid.Nil); err != nil {
		return Profile{}, err
	}

	return Project(user, auth.Scopes), nil
}

// ChangePassword updates the password on the session path: the new password
// must satisfy the deployment policy, and a no-op change is rejected.
func (s *Service) ChangePassword(ctx context.Context, newPassword string) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}
	return s.changePassword(ctx, auth.SubjectID, newPassword, uuid.Nil)
}

// ChangePasswordVerified updates the password on the verified path: the
// caller must present an unconsumed record scoped to password changes.
func (s *Service) ChangePasswordVerified(ctx context.Context, newPassword string, recordID uuid.UUID) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	record, err := s.resolveRecord(ctx, auth, recordID, ScopeChangePassword)
	if err != nil {
		return err
	}

	return s.changePassword(ctx, auth.SubjectID, newPassword, record.ID)
}

func (s *Service) changePassword(ctx context.Context, subjectID uuid.UUID, newPassword string, recordID uuid.UUID) error {
	if err := validator.Apply(
		validator.StrongPassword("password", newPassword, s.passwordStrength),
		validator.MatchesPolicy("password", newPassword, s.passwordPolicy),
	); err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, subjectID)
	if err != nil {
		return err
	}

	// Reject a "change" to the identical password: the stored hash would
	// verify against the new value as-is.
	if len(user.PasswordHash) > 0 {
		if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(newPassword)); err == nil {
			return ErrSamePassword
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	user.PasswordAlgorithm = AlgorithmBcrypt

	return s.commit(ctx, user, recordID)
}

// SetEmail sets the primary email. The record must prove control of either
// the new address or the current one.
func (s *Service) SetEmail(ctx context.Context, email string, recordID uuid.UUID) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("primaryEmail", email)); err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return err
	}

	allowed := []string{email}
	if user.PrimaryEmail != nil {
		allowed = append(allowed, *user.PrimaryEmail)
	}
	record, err := s.resolveRecord(ctx, auth, recordID, ScopeSetEmail, allowed...)
	if err != nil {
		return err
	}

	if err := s.collision.Check(ctx, CandidateIdentifiers{Email: &email}, auth.SubjectID); err != nil {
		return err
	}

	user.PrimaryEmail = &email
	return s.commit(ctx, user, record.ID)
}

// DeleteEmail removes the primary email. Fails if none is set.
func (s *Service) DeleteEmail(ctx context.Context) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return err
	}
	if user.PrimaryEmail == nil {
		return ErrEmailNotExists
	}

	user.PrimaryEmail = nil
	return s.commit(ctx, user, uuid.Nil)
}

// SetPhone sets the primary phone. The record must prove control of either
// the new number or the current one.
func (s *Service) SetPhone(ctx context.Context, phone string, recordID uuid.UUID) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	phone = sanitizer.NormalizePhone(phone)
	if err := validator.Apply(validator.ValidPhone("primaryPhone", phone)); err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return err
	}

	allowed := []string{phone}
	if user.PrimaryPhone != nil {
		allowed = append(allowed, *user.PrimaryPhone)
	}
	record, err := s.resolveRecord(ctx, auth, recordID, ScopeSetPhone, allowed...)
	if err != nil {
		return err
	}

	if err := s.collision.Check(ctx, CandidateIdentifiers{Phone: &phone}, auth.SubjectID); err != nil {
		return err
	}

	user.PrimaryPhone = &phone
	return s.commit(ctx, user, record.ID)
}

// DeletePhone removes the primary phone. Fails if none is set.
func (s *Service) DeletePhone(ctx context.Context) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return err
	}
	if user.PrimaryPhone == nil {
		return ErrPhoneNotExists
	}

	user.PrimaryPhone = nil
	return s.commit(ctx, user, uuid.Nil)
}

// LinkIdentity exchanges the authorization payload with the named connector
// and merges the returned identity into the user's identity map. Last write
// wins per provider target.
func (s *Service) LinkIdentity(ctx context.Context, connectorID string, data map[string]string, recordID uuid.UUID) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	connector, ok := s.connectors[connectorID]
	if !ok {
		return ErrConnectorNotFound
	}

	record, err := s.resolveRecord(ctx, auth, recordID, ScopeLinkIdentity, connectorID)
	if err != nil {
		return err
	}

	social, err := connector.Exchange(ctx, data)
	if err != nil {
		if errors.Is(err, ErrUpstreamFailure) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return err
	}

	if user.Identities == nil {
		user.Identities = make(map[string]Identity, 1)
	}
	user.Identities[connector.Target()] = Identity{
		UserID: social.UserID,
		Details: map[string]any{
			"email":  social.Email,
			"name":   social.Name,
			"avatar": social.Avatar,
			"raw":    social.Raw,
		},
	}

	return s.commit(ctx, user, record.ID)
}

// UnlinkIdentity removes the identity stored under the given provider
// target. Fails if no such identity is linked.
func (s *Service) UnlinkIdentity(ctx context.Context, target string) error {
	auth, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	user, err := s.store.GetByID(ctx, auth.SubjectID)
	if err != nil {
		return err
	}

	if _, ok := user.Identities[target]; !ok {
		return ErrIdentityNotExists
	}
	delete(user.Identities, target)

	return s.commit(ctx, user, uuid.Nil)
}

// authenticate is the first transition of every operation: a request without
// a subject goes no further.
func (s *Service) authenticate(ctx context.Context) (AuthContext, error) {
	auth := AuthFromContext(ctx)
	if !auth.IsAuthenticated() {
		return AuthContext{}, ErrUnauthorized
	}
	return auth, nil
}

// resolveRecord loads and validates the verification record gating a
// sensitive mutation. The record must belong to the subject, be unconsumed
// and unexpired, carry the required scope, and have proven one of the
// allowed targets.
func (s *Service) resolveRecord(ctx context.Context, auth AuthContext, recordID uuid.UUID, scope string, allowedTargets ...string) (*VerificationRecord, error) {
	if recordID == uuid.Nil {
		return nil, ErrRecordNotFound
	}

	record, err := s.records.Resolve(ctx, recordID, auth.SubjectID)
	if err != nil {
		return nil, err
	}

	if err := record.UsableFor(scope, allowedTargets...); err != nil {
		return nil, err
	}

	return record, nil
}

// commit persists the mutated record, consumes the verification record that
// authorized it, and emits the change notification. The store write is the
// transaction boundary: if it fails, nothing happened.
func (s *Service) commit(ctx context.Context, user *User, recordID uuid.UUID) error {
	user.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, user); err != nil {
		return err
	}

	if recordID != uuid.Nil {
		// The mutation is already committed; a consume failure here means a
		// concurrent request won the record. Logged, not surfaced.
		if err := s.records.Consume(ctx, recordID); err != nil {
			s.logger.ErrorContext(ctx, "failed to consume verification record",
				slog.String("record_id", recordID.String()),
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err),
			)
		}
	}

	s.emit(user.Clone())
	return nil
}

// emit delivers the change notification off the request path so a slow
// webhook endpoint cannot stall the mutation response.
func (s *Service) emit(user *User) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("event emitter panicked",
					slog.String("user_id", user.ID.String()),
					slog.Any("panic", r),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.emitTimeout)
		defer cancel()

		if err := s.emitter.Emit(ctx, EventUserDataUpdated, user); err != nil {
			s.logger.Error("failed to emit change notification",
				slog.String("event", EventUserDataUpdated),
				slog.String("user_id", user.ID.String()),
				slog.Any("error", err),
			)
		}
	}()
}
