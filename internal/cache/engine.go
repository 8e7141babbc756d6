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

// Package cache is the engine's single aggregation point: one
// *store.Store per AWS region, a shared *scheduler.Scheduler for
// delayed transitions and throughput quotas, and the account id every
// handler stamps into ARNs. It plays the role the teacher's Coordinator
// played over producers and consumers, redirected at regions and
// stores.
package cache

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trivago/kinesis-mock/internal/scheduler"
	"github.com/trivago/kinesis-mock/internal/store"
)

// Engine is the top-level, process-wide handle every handler receives.
// Regions are created lazily and independently: two regions never
// contend on the same lock, matching the "serialized per region,
// concurrent across regions" requirement.
type Engine struct {
	mu      sync.RWMutex
	regions map[string]*store.Store

	scheduler *scheduler.Scheduler
	clock     scheduler.Clock
	accountID string
	log       *logrus.Entry
}

// New creates an Engine. clock is threaded through to the scheduler so
// tests can drive delayed transitions deterministically.
func New(clock scheduler.Clock, accountID string, log *logrus.Entry) *Engine {
	return &Engine{
		regions:   make(map[string]*store.Store),
		scheduler: scheduler.New(clock, log),
		clock:     clock,
		accountID: accountID,
		log:       log,
	}
}

// Scheduler exposes the shared scheduler, e.g. so bootstrap can call Run.
func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Now returns the engine's current time, taken from its Clock.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// AccountID returns the fixed account id every stream and consumer ARN
// in this engine is stamped with.
func (e *Engine) AccountID() string {
	return e.accountID
}

// Region returns the Store for region, creating an empty one on first
// use. The returned Store is safe for concurrent use.
func (e *Engine) Region(region string) *store.Store {
	e.mu.RLock()
	s, ok := e.regions[region]
	e.mu.RUnlock()
	if ok {
		return s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok = e.regions[region]; ok {
		return s
	}
	s = store.New(region)
	e.regions[region] = s
	return s
}

// Regions returns every region that has been touched so far, for
// snapshotting and diagnostics.
func (e *Engine) Regions() []*store.Store {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*store.Store, 0, len(e.regions))
	for _, s := range e.regions {
		out = append(out, s)
	}
	return out
}

// ScheduleTransition enqueues run to fire once delay has elapsed on the
// engine's Clock, with direct access to region's Store. Handlers use
// this for every state change spec.md requires to happen asynchronously
// (CREATING→ACTIVE, UPDATING→ACTIVE, shard split/merge activation, the
// tail of DeleteStream). run must tolerate its precondition no longer
// holding, since nothing cancels a scheduled transition. kind and
// streamName are carried alongside run purely so this Transition can
// be described in a snapshot without capturing the closure itself.
func (e *Engine) ScheduleTransition(region string, delay time.Duration, kind scheduler.TransitionKind, streamName string, run func(s *store.Store)) {
	target := e.Region(region)
	e.scheduler.Schedule(region, delay, kind, streamName, func() {
		run(target)
	})
}

// ExportTransitions returns every pending Transition in its
// serializable form, for a whole-engine snapshot.
func (e *Engine) ExportTransitions() []scheduler.PendingTransition {
	return e.scheduler.Export()
}

// StageTransitions records transitions restored from a snapshot
// without scheduling them yet; call ResolveTransitions once a resolver
// is available to actually reschedule them.
func (e *Engine) StageTransitions(pending []scheduler.PendingTransition) {
	e.scheduler.Stage(pending)
}

// ResolveTransitions reschedules every staged transition via resolve.
func (e *Engine) ResolveTransitions(resolve func(scheduler.PendingTransition) (func(), bool), log *logrus.Entry) {
	e.scheduler.Resolve(resolve, log)
}

// ShardThrottle returns the write-side token bucket for shardID.
func (e *Engine) ShardThrottle(shardID string) *scheduler.ShardThrottle {
	return e.scheduler.ShardThrottle(shardID)
}

// ReadShardThrottle returns the read-side token bucket for shardID,
// quota'd independently of ShardThrottle per GetRecords' own limits.
func (e *Engine) ReadShardThrottle(shardID string) *scheduler.ShardThrottle {
	return e.scheduler.ReadShardThrottle(shardID)
}
