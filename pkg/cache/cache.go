package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is a JSON value cache. Every implementation stores encoded bytes,
// so a value read back is always a fresh copy.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// ErrorFunc receives cache failures that GetOrLoad does not return. op is
// "get" or "set".
type ErrorFunc func(op, key string, err error)

// GetOrLoad returns the cached value for key or calls load and caches its
// result. The bool reports a cache hit. Cache failures never fail the call;
// read errors other than a miss and write errors go to onErr.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error), onErr ...ErrorFunc) (T, bool, error) {
	var v T
	if c == nil {
		v, err := load(ctx)
		return v, false, err
	}
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		report(onErr, "get", key, err)
	}

	v, err = load(ctx)
	if err != nil {
		return v, false, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		report(onErr, "set", key, err)
	}
	return v, false, nil
}

func report(fns []ErrorFunc, op, key string, err error) {
	for _, fn := range fns {
		if fn != nil {
			fn(op, key, err)
		}
	}
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	return b, nil
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	case *string:
		*d = string(data)
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}
