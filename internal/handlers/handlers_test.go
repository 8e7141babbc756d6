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

package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/scheduler"
)

const testRegion = "us-east-1"

// newTestHandlers wires a Handlers against a fresh Engine on a manual
// clock, with the engine's scheduler already running in the
// background so tests can advance the clock and assert on the
// resulting state transition with require.Eventually.
func newTestHandlers(t *testing.T) (*Handlers, *scheduler.ManualClock) {
	t.Helper()
	clock := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	engine := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Scheduler().Run(ctx)

	return New(engine, config.Default(), logrus.NewEntry(logrus.New())), clock
}

// createActiveStream creates a stream and advances the clock past its
// configured CreateStreamDuration, leaving callers with a ready ACTIVE
// stream of shardCount shards.
func createActiveStream(t *testing.T, h *Handlers, clock *scheduler.ManualClock, name string, shardCount int) {
	t.Helper()
	require.NoError(t, h.CreateStream(testRegion, CreateStreamInput{StreamName: name, ShardCount: shardCount}))
	clock.Advance(h.cfg.CreateStreamDuration)

	require.Eventually(t, func() bool {
		st, ok := h.engine.Region(testRegion).StreamByName(name)
		return ok && st.StreamStatus == kmodel.StreamStatusActive
	}, time.Second, time.Millisecond)
}
