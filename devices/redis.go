package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore provides a Redis-backed implementation of the Store interface.
// It uses JSON serialization for device records and is the right choice when
// the gateway runs on more than one host.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the time-to-live for device records.
// After this duration a device must register again.
// Default is 0, meaning registrations never expire.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys.
// Default is "pai".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a new Redis-backed device store.
//
// Example:
//
//	store := NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    WithPrefix("myapp"),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: "pai", // Default prefix
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Save persists a device record to Redis.
func (s *RedisStore) Save(ctx context.Context, device *Device) error {
	if device == nil {
		return ErrInvalidDevice
	}
	if device.Token == "" {
		return ErrInvalidToken
	}

	data, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to marshal device: %w", err)
	}

	if err := s.client.Set(ctx, s.deviceKey(device.Token), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Get retrieves a device record by token from Redis.
func (s *RedisStore) Get(ctx context.Context, token string) (*Device, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	data, err := s.client.Get(ctx, s.deviceKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var device Device
	if err := json.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device: %w", err)
	}

	return &device, nil
}

// Delete removes a device record from Redis.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	deleted, err := s.client.Del(ctx, s.deviceKey(token)).Result()
	if err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns all registered devices, oldest registration first.
// Scans for device keys, then fetches all records in one pipelined round-trip.
func (s *RedisStore) List(ctx context.Context) ([]*Device, error) {
	keys, err := s.scanDeviceKeys(ctx)
	if err != nil {
		return nil, err
	}

	devices, err := s.pipelinedLoadDevices(ctx, keys)
	if err != nil {
		return nil, err
	}

	sortDevices(devices)

	return devices, nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// scanDeviceKeys scans all device keys in Redis.
func (s *RedisStore) scanDeviceKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.deviceKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

// pipelinedLoadDevices fetches device records using a single pipelined GET.
// Records deleted between the scan and the fetch are skipped.
func (s *RedisStore) pipelinedLoadDevices(ctx context.Context, keys []string) ([]*Device, error) {
	if len(keys) == 0 {
		return []*Device{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis pipeline failed: %w", err)
	}

	devices := make([]*Device, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("redis get failed: %w", err)
		}
		var device Device
		if err := json.Unmarshal(data, &device); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device: %w", err)
		}
		devices = append(devices, &device)
	}
	return devices, nil
}

// deviceKey generates the Redis key for a device token.
func (s *RedisStore) deviceKey(token string) string {
	return fmt.Sprintf("%s:device:%s", s.prefix, token)
}
