package goredis

import (
	"context"
	"errors"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/redis/go-redis/v9"
)

var deleteIfEqualScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type goredisAdapter struct {
	client redis.UniversalClient
}

// Adapter is a go-redis backed store. It also implements adapter.Conditional.
type Adapter interface {
	adapter.Adapter
	adapter.Conditional
}

func NewAdapter(client redis.UniversalClient) Adapter {
	return &goredisAdapter{
		client: client,
	}
}

func (a goredisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = adapter.ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

func (a goredisAdapter) Set(ctx context.Context, key string, ttl time.Duration, data []byte) error {
	return a.client.Set(ctx, key, data, expiration(ttl)).Err()
}

func (a goredisAdapter) Delete(ctx context.Context, key string) error {
	return a.client.Del(ctx, key).Err()
}

func (a goredisAdapter) SetIfAbsent(ctx context.Context, key string, ttl time.Duration, data []byte) (bool, error) {
	return a.client.SetNX(ctx, key, data, expiration(ttl)).Result()
}

func (a goredisAdapter) DeleteIfEqual(ctx context.Context, key string, data []byte) (bool, error) {
	n, err := deleteIfEqualScript.Run(ctx, a.client, []string{key}, data).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return n > 0, nil
}

// expiration maps "no ttl" to go-redis' keep-forever value.
func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}
