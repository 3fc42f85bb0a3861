package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-speed/infrastructure/valkey"
)

// ValkeyStore implements the transient store on Valkey so every proxy node
// shares one error counter and one update cache.
type ValkeyStore struct {
	client *valkey.Client
	prefix string
}

func NewValkeyStore(client *valkey.Client) *ValkeyStore {
	return &ValkeyStore{
		client: client,
		prefix: client.Key("transient") + ":",
	}
}

func (s *ValkeyStore) fullKey(key string) string {
	return s.prefix + key
}

func (s *ValkeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	cmd := s.client.Inner().B().Get().Key(s.fullKey(key)).Build()
	val, err := s.client.Inner().Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	inner := s.client.Inner()
	if ttl <= 0 {
		return inner.Do(ctx, inner.B().Set().Key(s.fullKey(key)).Value(value).Build()).Error()
	}
	return inner.Do(ctx, inner.B().Set().Key(s.fullKey(key)).Value(value).Ex(ttl).Build()).Error()
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	inner := s.client.Inner()
	return inner.Do(ctx, inner.B().Del().Key(s.fullKey(key)).Build()).Error()
}

func (s *ValkeyStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	inner := s.client.Inner()
	full := s.fullKey(key)

	n, err := inner.Do(ctx, inner.B().Incr().Key(full).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	if ttl > 0 {
		if err := inner.Do(ctx, inner.B().Expire().Key(full).Seconds(int64(ttl/time.Second)).Build()).Error(); err != nil {
			return n, err
		}
	}
	return n, nil
}
