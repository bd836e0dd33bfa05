package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accountkit/accountkit/pkg/pg"
)

// PostgresUserStore persists identity records in PostgreSQL. Partial unique
// indexes on username, primary_email and primary_phone (see migrations) are
// the authoritative uniqueness guard; violations are mapped back to
// ErrIdentifierExists so the service reports them the same way as the
// collision pre-check.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore creates a store over the given pool.
func NewPostgresUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

const userColumns = `id, username, primary_email, primary_phone, password_hash,
	password_algorithm, name, avatar, address, custom_data, identities,
	created_at, updated_at`

func (s *PostgresUserStore) Create(ctx context.Context, user *User) error {
	address, customData, identities, err := marshalUserJSON(user)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`,
		user.ID, user.Username, user.PrimaryEmail, user.PrimaryPhone,
		user.PasswordHash, user.PasswordAlgorithm, user.Name, user.Avatar,
		address, customData, identities,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrIdentifierExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE primary_email = $1`, email))
}

func (s *PostgresUserStore) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE primary_phone = $1`, phone))
}

// Update writes the whole record in one statement, so either every field
// lands or none do.
func (s *PostgresUserStore) Update(ctx context.Context, user *User) error {
	address, customData, identities, err := marshalUserJSON(user)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET
			username = $2,
			primary_email = $3,
			primary_phone = $4,
			password_hash = $5,
			password_algorithm = $6,
			name = $7,
			avatar = $8,
			address = $9,
			custom_data = $10,
			identities = $11,
			updated_at = now()
		WHERE id = $1`,
		user.ID, user.Username, user.PrimaryEmail, user.PrimaryPhone,
		user.PasswordHash, user.PasswordAlgorithm, user.Name, user.Avatar,
		address, customData, identities,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrIdentifierExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresUserStore) scanOne(row pgx.Row) (*User, error) {
	var (
		user       User
		address    []byte
		customData []byte
		identities []byte
	)

	err := row.Scan(
		&user.ID, &user.Username, &user.PrimaryEmail, &user.PrimaryPhone,
		&user.PasswordHash, &user.PasswordAlgorithm, &user.Name, &user.Avatar,
		&address, &customData, &identities,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if len(address) > 0 {
		if err := json.Unmarshal(address, &user.Address); err != nil {
			return nil, fmt.Errorf("failed to unmarshal address: %w", err)
		}
	}
	if len(customData) > 0 {
		if err := json.Unmarshal(customData, &user.CustomData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal custom data: %w", err)
		}
	}
	if len(identities) > 0 {
		if err := json.Unmarshal(identities, &user.Identities); err != nil {
			return nil, fmt.Errorf("failed to unmarshal identities: %w", err)
		}
	}

	return &user, nil
}

func marshalUserJSON(user *User) (address, customData, identities []byte, err error) {
	if user.Address != nil {
		if address, err = json.Marshal(user.Address); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal address: %w", err)
		}
	}
	if user.CustomData != nil {
		if customData, err = json.Marshal(user.CustomData); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal custom data: %w", err)
		}
	}
	if user.Identities != nil {
		if identities, err = json.Marshal(user.Identities); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal identities: %w", err)
		}
	}
	return address, customData, identities, nil
}

var _ UserStore = (*PostgresUserStore)(nil)
