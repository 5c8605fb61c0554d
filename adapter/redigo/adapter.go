package redigo

import (
	"context"
	"errors"
	"time"

	"github.com/ezraisw/kvmutex/adapter"
	"github.com/gomodule/redigo/redis"
)

var deleteIfEqualScript = redis.NewScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redigoAdapter struct {
	pool *redis.Pool
}

// Adapter is a redigo backed store. It also implements adapter.Conditional.
type Adapter interface {
	adapter.Adapter
	adapter.Conditional
}

func NewAdapter(pool *redis.Pool) Adapter {
	return &redigoAdapter{
		pool: pool,
	}
}

func (a redigoAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := a.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do(CommandGet, key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			err = adapter.ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

func (a redigoAdapter) Set(ctx context.Context, key string, ttl time.Duration, value []byte) error {
	args := []any{
		key, value,
	}
	args = append(args, formatExpirationArgs(ttl)...)

	conn, err := a.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do(CommandSet, args...)
	return err
}

func (a redigoAdapter) Delete(ctx context.Context, key string) error {
	conn, err := a.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Do(CommandDel, key)
	return err
}

func (a redigoAdapter) SetIfAbsent(ctx context.Context, key string, ttl time.Duration, value []byte) (bool, error) {
	args := []any{
		key, value, optionNX,
	}
	args = append(args, formatExpirationArgs(ttl)...)

	conn, err := a.pool.GetContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// SET ... NX replies with a nil bulk string when the key exists.
	reply, err := conn.Do(CommandSet, args...)
	if err != nil {
		return false, err
	}
	return reply != nil, nil
}

func (a redigoAdapter) DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error) {
	conn, err := a.pool.GetContext(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	n, err := redis.Int64(deleteIfEqualScript.Do(conn, key, value))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
