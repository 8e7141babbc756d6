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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/kmodel"
)

func sampleStream(name string) *kmodel.Stream {
	return &kmodel.Stream{
		Region:       "us-east-1",
		AwsAccountID: "000000000000",
		StreamName:   name,
		StreamARN:    "arn:aws:kinesis:us-east-1:000000000000:stream/" + name,
		StreamStatus: kmodel.StreamStatusActive,
		CreationTime: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Tags:         map[string]string{},
		Consumers:    map[string]*kmodel.Consumer{},
	}
}

func TestStoreUpdateThenView(t *testing.T) {
	s := New("us-east-1")

	s.Update(func(streams map[string]*kmodel.Stream) {
		streams["orders"] = sampleStream("orders")
	})

	st, ok := s.StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, "orders", st.StreamName)
	assert.Equal(t, 1, s.Count())
}

func TestStreamByARN(t *testing.T) {
	s := New("us-east-1")
	s.Update(func(streams map[string]*kmodel.Stream) {
		streams["orders"] = sampleStream("orders")
	})

	st, ok := s.StreamByARN("arn:aws:kinesis:us-east-1:000000000000:stream/orders")
	require.True(t, ok)
	assert.Equal(t, "orders", st.StreamName)

	_, ok = s.StreamByARN("arn:aws:kinesis:us-east-1:000000000000:stream/missing")
	assert.False(t, ok)
}

func TestListStreamNamesIsSorted(t *testing.T) {
	s := New("us-east-1")
	s.Update(func(streams map[string]*kmodel.Stream) {
		streams["zeta"] = sampleStream("zeta")
		streams["alpha"] = sampleStream("alpha")
		streams["mid"] = sampleStream("mid")
	})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, s.ListStreamNames())
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New("us-east-1")
	s.Update(func(streams map[string]*kmodel.Stream) {
		orders := sampleStream("orders")
		orders.Shards = []*kmodel.Shard{{
			ShardID:    "shardId-000000000000",
			StreamName: "orders",
			HashKeyRange: kmodel.HashKeyRange{
				StartingHashKey: "0",
				EndingHashKey:   "340282366920938463463374607431768211455",
			},
			SequenceNumberRange: kmodel.SequenceNumberRange{StartingSequenceNumber: "1"},
			CreationDate:        time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		}}
		streams["orders"] = orders
	})

	data, err := s.MarshalSnapshot()
	require.NoError(t, err)

	restored := New("us-east-1")
	require.NoError(t, restored.LoadSnapshot(data))

	st, ok := restored.StreamByName("orders")
	require.True(t, ok)
	assert.Len(t, st.Shards, 1)
	assert.Equal(t, "shardId-000000000000", st.Shards[0].ShardID)
}
