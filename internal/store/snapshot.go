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

package store

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/trivago/kinesis-mock/internal/kmodel"
)

// gobStream is an alias of kmodel.Stream, not a separate type: every
// exported field of kmodel.Stream is persisted, and any field added to
// it changes the snapshot format.
type gobStream = kmodel.Stream

// MarshalSnapshot gob-encodes every stream in this region.
func (s *Store) MarshalSnapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]*gobStream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(streams); err != nil {
		return nil, fmt.Errorf("store: marshal snapshot for region %s: %w", s.region, err)
	}
	return buf.Bytes(), nil
}

// LoadSnapshot replaces this region's entire stream table with the
// contents of a snapshot produced by MarshalSnapshot. It is meant to
// run once at startup, before the region is exposed to traffic.
func (s *Store) LoadSnapshot(data []byte) error {
	var streams []*gobStream
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&streams); err != nil {
		return fmt.Errorf("store: load snapshot for region %s: %w", s.region, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = make(map[string]*kmodel.Stream, len(streams))
	for _, st := range streams {
		s.streams[st.StreamName] = st
	}
	return nil
}
