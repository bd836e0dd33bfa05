package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const verificationKeyPrefix = "verification:"

// consumeScript flips the consumed flag check-and-set atomically on the
// Redis server, preserving the key's remaining TTL. Returns 1 on success,
// 0 when the record is missing, -1 when it was already consumed.
var consumeScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return 0
end
local rec = cjson.decode(raw)
if rec.consumed then
	return -1
end
rec.consumed = true
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	redis.call('SET', KEYS[1], cjson.encode(rec), 'PX', ttl)
else
	redis.call('SET', KEYS[1], cjson.encode(rec))
end
return 1
`)

// RedisVerificationStore keeps verification records in Redis. Expiry is
// delegated to key TTLs, so stale proofs vanish on their own; consumption
// uses a server-side script for compare-and-swap semantics across service
// replicas.
type RedisVerificationStore struct {
	client *redis.Client
}

// NewRedisVerificationStore creates a store backed by the given client.
func NewRedisVerificationStore(client *redis.Client) *RedisVerificationStore {
	return &RedisVerificationStore{client: client}
}

func verificationKey(id uuid.UUID) string {
	return verificationKeyPrefix + id.String()
}

func (s *RedisVerificationStore) Create(ctx context.Context, record *VerificationRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return ErrRecordExpired
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal verification record: %w", err)
	}

	if err := s.client.Set(ctx, verificationKey(record.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification record: %w", err)
	}
	return nil
}

func (s *RedisVerificationStore) Resolve(ctx context.Context, recordID, subjectID uuid.UUID) (*VerificationRecord, error) {
	raw, err := s.client.Get(ctx, verificationKey(recordID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load verification record: %w", err)
	}

	var record VerificationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal verification record: %w", err)
	}

	if record.SubjectID != subjectID {
		return nil, ErrRecordNotFound
	}

	return &record, nil
}

func (s *RedisVerificationStore) Consume(ctx context.Context, recordID uuid.UUID) error {
	res, err := consumeScript.Run(ctx, s.client, []string{verificationKey(recordID)}).Int()
	if err != nil {
		return fmt.Errorf("failed to consume verification record: %w", err)
	}

	switch res {
	case 1:
		return nil
	case -1:
		return ErrRecordConsumed
	default:
		return ErrRecordNotFound
	}
}

var _ VerificationStore = (*RedisVerificationStore)(nil)
