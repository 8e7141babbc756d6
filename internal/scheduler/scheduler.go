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

// Package scheduler drives every delayed state transition in the mock:
// CREATING→ACTIVE, UPDATING→ACTIVE, the tail of a DeleteStream, and
// split/merge shard activation. It also hosts the per-shard throughput
// token buckets. Firing is handled through a time-ordered priority
// queue and an injectable Clock, so tests can advance time without
// sleeping.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TransitionKind tags a Transition with enough information for a
// caller-supplied resolver to rebuild its Run closure after a snapshot
// restore, since closures themselves can't be gob-encoded.
type TransitionKind string

// Transition is one pending delayed action: the region it applies to,
// when it becomes due, and the closure the Scheduler runs at that time.
// Run must be idempotent against its own precondition no longer
// holding (e.g. the stream having been deleted before the transition
// fired) - the Scheduler only guarantees ordering, not cancellation.
type Transition struct {
	Region     string
	Kind       TransitionKind
	StreamName string
	Run        func()

	index int // heap bookkeeping
	seq   uint64
	dueAt int64 // unix nanos, set internally
}

// PendingTransition is the serializable form of a queued Transition,
// exported via Scheduler.Export for folding into a whole-engine
// snapshot and restored via Scheduler.Stage/Resolve.
type PendingTransition struct {
	Region     string
	Kind       TransitionKind
	StreamName string
	DueAt      time.Time
}

type transitionHeap []*Transition

func (h transitionHeap) Len() int { return len(h) }
func (h transitionHeap) Less(i, j int) bool {
	if h[i].dueAt != h[j].dueAt {
		return h[i].dueAt < h[j].dueAt
	}
	return h[i].seq < h[j].seq
}
func (h transitionHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *transitionHeap) Push(x interface{}) {
	t := x.(*Transition)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *transitionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler is a single time-ordered queue of pending Transitions, fed
// by every region's store and drained by one background goroutine.
type Scheduler struct {
	clock Clock
	log   *logrus.Entry

	mu      sync.Mutex
	queue   transitionHeap
	nextSeq uint64
	wake    chan struct{}
	staged  []PendingTransition

	throttlesMu     sync.Mutex
	throttles       map[string]*ShardThrottle
	readThrottles   map[string]*ShardThrottle
}

// New creates a Scheduler driven by clock. Pass RealClock{} in
// production and a *ManualClock in tests.
func New(clock Clock, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		clock:         clock,
		log:           log,
		wake:          make(chan struct{}, 1),
		throttles:     make(map[string]*ShardThrottle),
		readThrottles: make(map[string]*ShardThrottle),
	}
}

// Schedule enqueues run to fire once the clock reaches now+delay.
// kind and streamName carry no behavior of their own - they're kept
// alongside Run purely so Export can describe this Transition for
// snapshotting without capturing the closure itself.
func (s *Scheduler) Schedule(region string, delay time.Duration, kind TransitionKind, streamName string, run func()) {
	s.mu.Lock()
	t := &Transition{
		Region:     region,
		Kind:       kind,
		StreamName: streamName,
		Run:        run,
		seq:        s.nextSeq,
		dueAt:      s.clock.Now().UnixNano() + delay.Nanoseconds(),
	}
	s.nextSeq++
	heap.Push(&s.queue, t)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the queue until ctx is cancelled. It is meant to run in
// its own goroutine for the lifetime of the process.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		var next *Transition
		if len(s.queue) > 0 {
			next = s.queue[0]
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		now := s.clock.Now().UnixNano()
		if next.dueAt <= now {
			s.mu.Lock()
			if len(s.queue) > 0 && s.queue[0] == next {
				heap.Pop(&s.queue)
			}
			s.mu.Unlock()

			func() {
				defer func() {
					if r := recover(); r != nil {
						s.log.WithField("panic", r).Error("scheduled transition panicked")
					}
				}()
				next.Run()
			}()
			continue
		}

		waitDur := time.Duration(next.dueAt - now)
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-s.clock.After(waitDur):
		}
	}
}

// PendingCount reports how many transitions are queued, for tests and
// diagnostics.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Export returns every currently queued Transition in its serializable
// form, for folding into a whole-engine snapshot. Run closures aren't
// (and can't be) included - Resolve rebuilds them on the other end.
func (s *Scheduler) Export() []PendingTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingTransition, 0, len(s.queue))
	for _, t := range s.queue {
		out = append(out, PendingTransition{
			Region:     t.Region,
			Kind:       t.Kind,
			StreamName: t.StreamName,
			DueAt:      time.Unix(0, t.dueAt),
		})
	}
	return out
}

// Stage records transitions restored from a snapshot without
// scheduling them: their Run closures can't be rebuilt until Resolve
// is called with a resolver, which callers only have once their own
// domain layer (e.g. the handlers) exists.
func (s *Scheduler) Stage(pending []PendingTransition) {
	if len(pending) == 0 {
		return
	}
	s.mu.Lock()
	s.staged = append(s.staged, pending...)
	s.mu.Unlock()
}

// Resolve reschedules every staged transition, rebuilding its Run
// closure via resolve. A PendingTransition resolve can't handle (ok
// false) is dropped and logged rather than blocking startup on it.
// Transitions already past due fire as soon as Run starts draining the
// queue; the rest keep whatever delay remained at snapshot time.
func (s *Scheduler) Resolve(resolve func(PendingTransition) (run func(), ok bool), log *logrus.Entry) {
	s.mu.Lock()
	staged := s.staged
	s.staged = nil
	s.mu.Unlock()

	now := s.clock.Now()
	for _, p := range staged {
		run, ok := resolve(p)
		if !ok || run == nil {
			log.WithField("kind", p.Kind).WithField("stream", p.StreamName).
				Warn("scheduler: dropping pending transition with unresolvable kind after restore")
			continue
		}
		delay := p.DueAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		s.Schedule(p.Region, delay, p.Kind, p.StreamName, run)
	}
}

// ShardThrottle returns the write-side token bucket for shardID,
// creating one with the default quotas on first use.
func (s *Scheduler) ShardThrottle(shardID string) *ShardThrottle {
	s.throttlesMu.Lock()
	defer s.throttlesMu.Unlock()

	t, ok := s.throttles[shardID]
	if !ok {
		t = NewShardThrottle(s.clock, DefaultWriteBytesPerSecond, DefaultWriteRecordsPerSecond)
		s.throttles[shardID] = t
	}
	return t
}

// ReadShardThrottle returns the read-side token bucket for shardID,
// creating one with GetRecords' default quotas on first use. Kept
// separate from ShardThrottle since reads and writes draw from
// independent quotas against the same shard.
func (s *Scheduler) ReadShardThrottle(shardID string) *ShardThrottle {
	s.throttlesMu.Lock()
	defer s.throttlesMu.Unlock()

	t, ok := s.readThrottles[shardID]
	if !ok {
		t = NewShardThrottle(s.clock, DefaultReadBytesPerSecond, DefaultReadTransactionsPerSecond)
		s.readThrottles[shardID] = t
	}
	return t
}

// DropShardThrottle removes a shard's read and write token buckets,
// e.g. once the shard has been merged away or its stream deleted.
func (s *Scheduler) DropShardThrottle(shardID string) {
	s.throttlesMu.Lock()
	defer s.throttlesMu.Unlock()
	delete(s.throttles, shardID)
	delete(s.readThrottles, shardID)
}
