package redis

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/identity-platform/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix  = "otc"
	codeSaltLen    = 16
	consumeRetries = 4
)

// codeKey is the composite (email, purpose) cache key. Purposes live in
// disjoint namespaces so a registration code can never validate a login
// attempt.
type codeKey struct {
	email   string
	purpose string
}

func (k codeKey) String() string {
	return codeKeyPrefix + ":" + k.purpose + ":" + k.email
}

// codeRecord is the stored entry: the salted code hash and the opaque saga
// payload share one Redis TTL, so they always expire together.
type codeRecord struct {
	Salt     []byte          `json:"salt"`
	Hash     []byte          `json:"hash"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	IssuedAt int64           `json:"issued_at"`
}

// CodeStore holds one-time codes and their pending payloads in Redis.
// The plaintext code is never stored; only a salted, peppered SHA-256.
type CodeStore struct {
	client *redis.Client
	pepper []byte
}

func NewCodeStore(client *redis.Client, pepper string) *CodeStore {
	return &CodeStore{client: client, pepper: []byte(pepper)}
}

func (s *CodeStore) hash(salt []byte, code string) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write(s.pepper)
	h.Write([]byte(code))
	return h.Sum(nil)
}

// Put stores a fresh code hash and payload under (email, purpose),
// overwriting any existing entry and resetting the TTL.
func (s *CodeStore) Put(ctx context.Context, email, purpose, code string, payload []byte, ttl time.Duration) error {
	salt := make([]byte, codeSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate code salt: %w", err)
	}
	rec := codeRecord{
		Salt:     salt,
		Hash:     s.hash(salt, code),
		Payload:  payload,
		IssuedAt: time.Now().Unix(),
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode code record: %w", err)
	}
	if err := s.client.Set(ctx, codeKey{email, purpose}.String(), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("store code record: %w", err)
	}
	return nil
}

// Verify compares candidate against the stored hash in constant time. On
// match it atomically deletes the entry and returns the payload; exactly one
// of N concurrent correct submissions observes the match. A mismatch leaves
// the entry intact so the caller may retry until expiry. A missing or
// expired entry yields domain.ErrCodeInvalid.
func (s *CodeStore) Verify(ctx context.Context, email, purpose, candidate string) ([]byte, error) {
	key := codeKey{email, purpose}.String()

	for i := 0; i < consumeRetries; i++ {
		var payload []byte

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return domain.ErrCodeInvalid
				}
				return err
			}
			var rec codeRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode code record: %w", err)
			}
			if subtle.ConstantTimeCompare(s.hash(rec.Salt, candidate), rec.Hash) != 1 {
				return domain.ErrCodeInvalid
			}
			payload = rec.Payload
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// Entry changed under us; another submission may have consumed it.
			continue
		}
		if err != nil {
			return nil, err
		}
		return payload, nil
	}
	return nil, domain.ErrCodeInvalid
}

// Rotate replaces the code for an existing entry with a fresh one, keeping
// the stored payload and restarting the TTL. Used for resends; a missing
// entry yields domain.ErrCodeInvalid so resend cannot resurrect an expired
// registration.
func (s *CodeStore) Rotate(ctx context.Context, email, purpose, newCode string, ttl time.Duration) error {
	key := codeKey{email, purpose}.String()

	for i := 0; i < consumeRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return domain.ErrCodeInvalid
				}
				return err
			}
			var rec codeRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode code record: %w", err)
			}
			salt := make([]byte, codeSaltLen)
			if _, err := rand.Read(salt); err != nil {
				return fmt.Errorf("generate code salt: %w", err)
			}
			rec.Salt = salt
			rec.Hash = s.hash(salt, newCode)
			rec.IssuedAt = time.Now().Unix()
			encoded, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode code record: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return domain.ErrCodeInvalid
}

// Clear removes the entry for (email, purpose). Used when a saga must abort
// before verification. Clearing an absent entry is not an error.
func (s *CodeStore) Clear(ctx context.Context, email, purpose string) error {
	return s.client.Del(ctx, codeKey{email, purpose}.String()).Err()
}
