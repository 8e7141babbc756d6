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

// Package snapshot serializes and restores a whole *cache.Engine -
// every region's streams, shards and records - across process
// restarts. Each region already knows how to gob-encode itself
// (internal/store's MarshalSnapshot/LoadSnapshot); this package's job
// is gluing those per-region blobs into one envelope and picking where
// that envelope lives: a local file, written atomically, or a Redis
// key for deployments without durable local disk.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/scheduler"
)

// envelope is the whole-engine wire format: one region name to one
// gob-encoded store.Store blob, plus every pending scheduler
// transition - a stream mid CREATING/UPDATING/DELETING at snapshot
// time must not restart stuck in that status forever.
type envelope struct {
	Regions     map[string][]byte
	Transitions []scheduler.PendingTransition
}

// Marshal gob-encodes every region currently known to e, along with
// the scheduler's pending transition queue.
func Marshal(e *cache.Engine) ([]byte, error) {
	env := envelope{
		Regions:     make(map[string][]byte),
		Transitions: e.ExportTransitions(),
	}
	for _, s := range e.Regions() {
		data, err := s.MarshalSnapshot()
		if err != nil {
			return nil, err
		}
		env.Regions[s.Region()] = data
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal restores every region in data onto e, creating regions
// that don't exist yet, and stages the pending transition queue.
// Staged transitions aren't rescheduled until the caller resolves them
// via e.ResolveTransitions once a resolver is available - see
// bootstrap.ResolveTransitions. Meant to run once at startup before e
// is exposed to traffic.
func Unmarshal(e *cache.Engine, data []byte) error {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return fmt.Errorf("snapshot: unmarshal: %w", err)
	}

	for region, regionData := range env.Regions {
		if err := e.Region(region).LoadSnapshot(regionData); err != nil {
			return err
		}
	}
	e.StageTransitions(env.Transitions)
	return nil
}
