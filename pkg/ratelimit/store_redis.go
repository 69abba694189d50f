// Copyright 2025 The Admission Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowLua implements the take operation atomically: the first INCR in
// a window anchors the expiry, later ones ride the existing TTL. The counter
// keeps incrementing past the limit; the verdict is derived client-side.
const fixedWindowLua = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

const redisKeyPrefix = "admission:"

// RedisStore is a Redis-backed implementation of Store for multi-instance
// deployments. Window expiry rides Redis TTLs, so Sweep has nothing to do.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{
		client: client,
		script: redis.NewScript(fixedWindowLua),
	}, nil
}

func redisKey(policy, id string) string {
	return redisKeyPrefix + policy + ":" + id
}

// Take records one request and returns the verdict.
func (s *RedisStore) Take(ctx context.Context, id string, p Policy) (Verdict, error) {
	key := redisKey(p.Name, id)

	values, err := s.script.Run(ctx, s.client, []string{key}, p.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Verdict{}, fmt.Errorf("redis script: %w", err)
	}
	if len(values) != 2 {
		return Verdict{}, fmt.Errorf("unexpected redis script result: %v", values)
	}

	count, ttl := values[0], values[1]
	reset := time.Now().Add(time.Duration(ttl) * time.Millisecond)

	if count > p.MaxRequests {
		return Verdict{Allowed: false, Remaining: 0, ResetTime: reset}, nil
	}
	return Verdict{Allowed: true, Remaining: p.MaxRequests - count, ResetTime: reset}, nil
}

// Reset deletes the identifier's counters across all policies.
func (s *RedisStore) Reset(ctx context.Context, id string) error {
	pattern := redisKeyPrefix + "*:" + id

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan identifier keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete identifier keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Sweep is a no-op: Redis evicts expired windows through key TTLs.
func (s *RedisStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	return 0, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
