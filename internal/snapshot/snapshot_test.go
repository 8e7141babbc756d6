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
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/scheduler"
	"github.com/trivago/kinesis-mock/internal/store"
)

func seedEngine(t *testing.T) *cache.Engine {
	t.Helper()
	clock := scheduler.NewManualClock(time.Unix(0, 0))
	e := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))
	e.Region("us-east-1").Update(func(streams map[string]*kmodel.Stream) {
		streams["orders"] = &kmodel.Stream{
			Region:       "us-east-1",
			AwsAccountID: "000000000000",
			StreamName:   "orders",
			StreamARN:    "arn:aws:kinesis:us-east-1:000000000000:stream/orders",
			StreamStatus: kmodel.StreamStatusActive,
			CreationTime: clock.Now(),
			Consumers:    map[string]*kmodel.Consumer{},
			Shards: []*kmodel.Shard{{
				ShardID:    "shardId-000000000000",
				StreamName: "orders",
				Records:    []*kmodel.Record{{Data: []byte("hello"), PartitionKey: "k1", SequenceNumber: "1"}},
			}},
		}
	})
	return e
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	e := seedEngine(t)

	data, err := Marshal(e)
	require.NoError(t, err)

	clock := scheduler.NewManualClock(time.Unix(0, 0))
	restored := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))
	require.NoError(t, Unmarshal(restored, data))

	st, ok := restored.Region("us-east-1").StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, kmodel.StreamStatusActive, st.StreamStatus)
	require.Len(t, st.Shards, 1)
	require.Len(t, st.Shards[0].Records, 1)
	assert.Equal(t, []byte("hello"), st.Shards[0].Records[0].Data)
}

func TestMarshalUnmarshalRoundTripsPendingTransitions(t *testing.T) {
	e := seedEngine(t)
	e.Region("us-east-1").Update(func(streams map[string]*kmodel.Stream) {
		streams["orders"].StreamStatus = kmodel.StreamStatusUpdating
	})
	e.ScheduleTransition("us-east-1", 30*time.Second, "activate_from_updating", "orders", func(s *store.Store) {})

	data, err := Marshal(e)
	require.NoError(t, err)

	clock := scheduler.NewManualClock(time.Unix(0, 0))
	restored := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))
	require.NoError(t, Unmarshal(restored, data))

	st, ok := restored.Region("us-east-1").StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, kmodel.StreamStatusUpdating, st.StreamStatus, "a stream restored mid-transition stays in its in-flight status until resolved")

	assert.Equal(t, 0, restored.Scheduler().PendingCount(), "staged transitions aren't scheduled until ResolveTransitions runs")

	resolved := make(chan struct{})
	restored.ResolveTransitions(func(p scheduler.PendingTransition) (func(), bool) {
		if p.Kind != "activate_from_updating" || p.StreamName != "orders" {
			return nil, false
		}
		return func() { close(resolved) }, true
	}, logrus.NewEntry(logrus.New()))

	assert.Equal(t, 1, restored.Scheduler().PendingCount(), "resolve reschedules the staged transition")
}

func TestSaveFileThenLoadFileRoundTrips(t *testing.T) {
	e := seedEngine(t)
	path := filepath.Join(t.TempDir(), "engine.snapshot")

	require.NoError(t, SaveFile(e, path))

	clock := scheduler.NewManualClock(time.Unix(0, 0))
	restored := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))
	require.NoError(t, LoadFile(restored, path))

	st, ok := restored.Region("us-east-1").StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, "orders", st.StreamName)
}

func TestLoadFileMissingPathIsNotAnError(t *testing.T) {
	clock := scheduler.NewManualClock(time.Unix(0, 0))
	e := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))
	err := LoadFile(e, filepath.Join(t.TempDir(), "does-not-exist"))
	assert.NoError(t, err)
}
