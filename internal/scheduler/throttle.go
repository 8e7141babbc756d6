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

package scheduler

import (
	"sync"
	"time"
)

// Default per-shard quotas, matching Kinesis's standard-mode shard
// limits: 1 MiB/s and 1000 records/s for writes, 2 MiB/s for reads.
const (
	DefaultWriteBytesPerSecond       = 1 << 20
	DefaultWriteRecordsPerSecond     = 1000
	DefaultReadBytesPerSecond        = 2 << 20
	DefaultReadTransactionsPerSecond = 5
)

// ShardThrottle is a dual token bucket (bytes and records) tracking one
// shard's provisioned throughput. It is refilled lazily on every Allow
// call rather than by a background goroutine, so it works the same
// under a RealClock and a ManualClock.
type ShardThrottle struct {
	mu sync.Mutex

	clock      Clock
	lastRefill time.Time

	bytesAvailable   float64
	recordsAvailable float64

	maxBytesPerSecond   float64
	maxRecordsPerSecond float64
}

// NewShardThrottle creates a throttle starting with a full bucket.
func NewShardThrottle(clock Clock, maxBytesPerSecond, maxRecordsPerSecond float64) *ShardThrottle {
	return &ShardThrottle{
		clock:               clock,
		lastRefill:          clock.Now(),
		bytesAvailable:      maxBytesPerSecond,
		recordsAvailable:    maxRecordsPerSecond,
		maxBytesPerSecond:   maxBytesPerSecond,
		maxRecordsPerSecond: maxRecordsPerSecond,
	}
}

func (t *ShardThrottle) refillLocked() {
	now := t.clock.Now()
	elapsed := now.Sub(t.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	t.lastRefill = now

	t.bytesAvailable += elapsed * t.maxBytesPerSecond
	if t.bytesAvailable > t.maxBytesPerSecond {
		t.bytesAvailable = t.maxBytesPerSecond
	}
	t.recordsAvailable += elapsed * t.maxRecordsPerSecond
	if t.recordsAvailable > t.maxRecordsPerSecond {
		t.recordsAvailable = t.maxRecordsPerSecond
	}
}

// Allow attempts to withdraw one record of size bytes from the bucket.
// It reports whether the withdrawal fit within quota; on success the
// bucket balance is debited, on failure it is left untouched so the
// caller can retry later without double-charging.
func (t *ShardThrottle) Allow(size int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.refillLocked()

	if t.bytesAvailable < float64(size) || t.recordsAvailable < 1 {
		return false
	}
	t.bytesAvailable -= float64(size)
	t.recordsAvailable--
	return true
}

// Remaining reports the current byte and record balances, for
// DescribeLimits-style introspection and tests.
func (t *ShardThrottle) Remaining() (bytes, records float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refillLocked()
	return t.bytesAvailable, t.recordsAvailable
}
