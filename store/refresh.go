package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRefreshPrefix is the key namespace for stored refresh tokens.
const DefaultRefreshPrefix = "refresh_token:"

const (
	rotateStatusNotFound int64 = 0
	rotateStatusMismatch int64 = 1
	rotateStatusRotated  int64 = 2
)

const rotateRefreshScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// RefreshStore maps a subject to its single currently valid refresh token.
//
// Writes are unconditional overwrites, so concurrent writers resolve by last
// write wins. Rotate offers an atomic compare-and-swap alternative.
type RefreshStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRefreshStore creates a RefreshStore whose entries live for ttl.
func NewRefreshStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RefreshStore {
	if prefix == "" {
		prefix = DefaultRefreshPrefix
	}
	return &RefreshStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RefreshStore) key(subject string) string {
	return s.prefix + subject
}

// TTL returns the lifetime applied to every stored entry.
func (s *RefreshStore) TTL() time.Duration {
	return s.ttl
}

// Put stores token as the only valid refresh token for subject, replacing any previous value.
//
//	Performance: 1 Redis SET with PX.
func (s *RefreshStore) Put(ctx context.Context, subject, token string) error {
	if err := s.redis.Set(ctx, s.key(subject), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the stored refresh token for subject or ErrNotFound.
//
//	Performance: 1 Redis GET.
func (s *RefreshStore) Get(ctx context.Context, subject string) (string, error) {
	value, err := s.redis.Get(ctx, s.key(subject)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

// Delete removes the stored refresh token for subject. Deleting a missing entry is not an error.
func (s *RefreshStore) Delete(ctx context.Context, subject string) error {
	if err := s.redis.Del(ctx, s.key(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Rotate atomically replaces presented with next for subject.
//
// It returns ErrNotFound when nothing is stored and ErrMismatch when the
// stored value is not presented; in both cases nothing is written.
//
//	Performance: 1 Lua script (GET + SET).
func (s *RefreshStore) Rotate(ctx context.Context, subject, presented, next string) error {
	status, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{s.key(subject)},
		presented,
		next,
		s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrNotFound
	case rotateStatusMismatch:
		return ErrMismatch
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrUnavailable, status)
	}
}

// Ping reports the round-trip latency to Redis.
func (s *RefreshStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
