package profile

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-process UserStore used in tests. It enforces the
// same uniqueness guarantees as the PostgreSQL store so the collision
// defense-in-depth behavior is testable without a database.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

// NewMemoryUserStore creates an empty in-memory store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[uuid.UUID]*User)}
}

func (s *MemoryUserStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(user); err != nil {
		return err
	}

	cp := user.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.users[user.ID] = cp
	return nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	return s.findBy(func(u *User) bool {
		return u.Username != nil && *u.Username == username
	})
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	return s.findBy(func(u *User) bool {
		return u.PrimaryEmail != nil && *u.PrimaryEmail == email
	})
}

func (s *MemoryUserStore) FindByPhone(_ context.Context, phone string) (*User, error) {
	return s.findBy(func(u *User) bool {
		return u.PrimaryPhone != nil && *u.PrimaryPhone == phone
	})
}

func (s *MemoryUserStore) Update(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	if err := s.checkUniqueLocked(user); err != nil {
		return err
	}

	s.users[user.ID] = user.Clone()
	return nil
}

func (s *MemoryUserStore) findBy(match func(*User) bool) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

// checkUniqueLocked mirrors the unique indexes of the PostgreSQL schema.
func (s *MemoryUserStore) checkUniqueLocked(candidate *User) error {
	for id, u := range s.users {
		if id == candidate.ID {
			continue
		}
		if candidate.Username != nil && u.Username != nil && *candidate.Username == *u.Username {
			return ErrIdentifierExists
		}
		if candidate.PrimaryEmail != nil && u.PrimaryEmail != nil && *candidate.PrimaryEmail == *u.PrimaryEmail {
			return ErrIdentifierExists
		}
		if candidate.PrimaryPhone != nil && u.PrimaryPhone != nil && *candidate.PrimaryPhone == *u.PrimaryPhone {
			return ErrIdentifierExists
		}
	}
	return nil
}

var _ UserStore = (*MemoryUserStore)(nil)
