// Copyright 2015-2018 trivago N.V.
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

package snapshot

import (
	"fmt"

	"github.com/go-redis/redis"

	"github.com/trivago/kinesis-mock/internal/cache"
)

// RedisTarget persists the engine's snapshot to a single key in a
// Redis instance, for deployments that run this engine without
// durable local disk (e.g. as a stateless container next to a shared
// Redis used for nothing else).
type RedisTarget struct {
	client *redis.Client
	key    string
}

// NewRedisTarget dials addr lazily (go-redis connects on first use)
// and targets the given key for the whole-engine snapshot blob.
func NewRedisTarget(addr, key string) *RedisTarget {
	return &RedisTarget{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// Save writes e's snapshot to the target key, with no expiry.
func (t *RedisTarget) Save(e *cache.Engine) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}
	if err := t.client.Set(t.key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot: redis set %s: %w", t.key, err)
	}
	return nil
}

// Load restores e from the target key. A missing key is not an error.
func (t *RedisTarget) Load(e *cache.Engine) error {
	data, err := t.client.Get(t.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("snapshot: redis get %s: %w", t.key, err)
	}
	return Unmarshal(e, data)
}

// Close releases the underlying Redis connection pool.
func (t *RedisTarget) Close() error {
	return t.client.Close()
}
