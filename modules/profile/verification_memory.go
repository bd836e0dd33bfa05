package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryVerificationStore is an in-process VerificationStore used in tests
// and single-node deployments. Consumption is serialized by the mutex, which
// gives the required check-and-set atomicity.
type MemoryVerificationStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*VerificationRecord
}

// NewMemoryVerificationStore creates an empty in-memory store.
func NewMemoryVerificationStore() *MemoryVerificationStore {
	return &MemoryVerificationStore{
		records: make(map[uuid.UUID]*VerificationRecord),
	}
}

func (s *MemoryVerificationStore) Create(_ context.Context, record *VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *MemoryVerificationStore) Resolve(_ context.Context, recordID, subjectID uuid.UUID) (*VerificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordID]
	if !ok || record.SubjectID != subjectID {
		return nil, ErrRecordNotFound
	}

	cp := *record
	return &cp, nil
}

func (s *MemoryVerificationStore) Consume(_ context.Context, recordID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordID]
	if !ok {
		return ErrRecordNotFound
	}
	if record.Consumed {
		return ErrRecordConsumed
	}
	record.Consumed = true
	return nil
}

var _ VerificationStore = (*MemoryVerificationStore)(nil)
