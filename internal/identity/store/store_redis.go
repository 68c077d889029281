package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
)

// allocateScript maps ARGV[1] to INCR(KEYS[2]) in hash KEYS[1] unless already
// mapped, in which case it returns 0. Scripts run atomically on the server.
var allocateScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	return 0
end
local next = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], ARGV[1], next)
return next
`)

// RedisStore shares the ledger across registry instances.
type RedisStore struct {
	client  redis.UniversalClient
	keysKey string
	seqKey  string
}

// NewRedis creates a Redis-backed ledger. prefix namespaces the two keys it uses.
func NewRedis(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "provenant"
	}
	return &RedisStore{
		client:  client,
		keysKey: prefix + ":package_keys",
		seqKey:  prefix + ":passport_seq",
	}
}

func (s *RedisStore) Allocate(ctx context.Context, key string) (id.PassportID, error) {
	n, err := allocateScript.Run(ctx, s.client, []string{s.keysKey, s.seqKey}, key).Int64()
	if err != nil {
		return id.NoPassport, fmt.Errorf("allocate package key: %w", err)
	}
	if n == 0 {
		return id.NoPassport, sentinel.ErrAlreadyUsed
	}
	return id.PassportID(n), nil
}

func (s *RedisStore) Resolve(ctx context.Context, key string) (id.PassportID, error) {
	n, err := s.client.HGet(ctx, s.keysKey, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return id.NoPassport, sentinel.ErrNotFound
	}
	if err != nil {
		return id.NoPassport, fmt.Errorf("resolve package key: %w", err)
	}
	return id.PassportID(n), nil
}
