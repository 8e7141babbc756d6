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

// Package store holds one AWS region's worth of stream state: a plain
// map of stream name to *kmodel.Stream, guarded by a single RWMutex.
// Every access goes through View (read-only) or Update (read-write) so
// the locking discipline lives in one place instead of being repeated
// at every call site - the same shape the teacher used for its
// plugin registries.
package store

import (
	"sort"
	"sync"

	"github.com/trivago/kinesis-mock/internal/kmodel"
)

// Store is a single region's stream table.
type Store struct {
	mu      sync.RWMutex
	region  string
	streams map[string]*kmodel.Stream
}

// New creates an empty Store for region.
func New(region string) *Store {
	return &Store{
		region:  region,
		streams: make(map[string]*kmodel.Stream),
	}
}

// Region returns the region this store was created for.
func (s *Store) Region() string {
	return s.region
}

// View runs fn holding the read lock. fn must not retain the map or
// any *Stream beyond the call, nor mutate them - use Update for that.
func (s *Store) View(fn func(streams map[string]*kmodel.Stream)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.streams)
}

// Update runs fn holding the write lock, free to mutate streams, add
// or remove entries, and mutate any *Stream reachable from it.
func (s *Store) Update(fn func(streams map[string]*kmodel.Stream)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.streams)
}

// StreamByName is a convenience read, equivalent to a View that looks
// up one key. The returned pointer is only safe to read after the
// call returns if the caller does not race a concurrent Update -
// handlers that need a stable view across several fields should use
// View instead.
func (s *Store) StreamByName(name string) (*kmodel.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[name]
	return st, ok
}

// StreamByARN finds a stream by its ARN.
func (s *Store) StreamByARN(arn string) (*kmodel.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.streams {
		if st.StreamARN == arn {
			return st, true
		}
	}
	return nil, false
}

// ListStreamNames returns every stream name in this region, sorted -
// the same order ListStreams paginates in (ListStreams sorts its own
// copy and does not call this).
func (s *Store) ListStreamNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.streams))
	for name := range s.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of streams currently in this region.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams)
}
