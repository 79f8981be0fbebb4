package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "oracle-validator:bindings"

// RedisStore keeps bindings in a single redis hash keyed by asset address.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store over an existing client. An empty key uses the default hash name.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, asset common.Address) (FeedBinding, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, assetField(asset)).Bytes()
	if errors.Is(err, redis.Nil) {
		return FeedBinding{}, false, nil
	}
	if err != nil {
		return FeedBinding{}, false, err
	}

	var b FeedBinding
	if err := json.Unmarshal(raw, &b); err != nil {
		return FeedBinding{}, false, fmt.Errorf("%w: %s: %w", ErrCorruptBinding, asset.Hex(), err)
	}
	return b, true, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, asset common.Address, binding FeedBinding) error {
	raw, err := json.Marshal(binding)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, assetField(asset), raw).Err()
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(all))
	for field, raw := range all {
		if !common.IsHexAddress(field) {
			return nil, fmt.Errorf("%w: field %q", ErrCorruptBinding, field)
		}
		var b FeedBinding
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorruptBinding, field, err)
		}
		entries = append(entries, Entry{Asset: common.HexToAddress(field), Binding: b})
	}

	sortEntries(entries)
	return entries, nil
}

func assetField(asset common.Address) string {
	return asset.Hex()
}
