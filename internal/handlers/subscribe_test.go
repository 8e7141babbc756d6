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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/seqnum"
)

func TestSubscribeToShardPollsRecordsWrittenAfterSubscribing(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	regOut, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.NoError(t, err)

	sub, err := h.SubscribeToShard(testRegion, SubscribeToShardInput{
		ConsumerARN:      regOut.Consumer.ConsumerARN,
		ShardId:          st.Shards[0].ShardID,
		StartingPosition: SubscribeStartingPosition{Type: string(seqnum.TrimHorizon)},
	})
	require.NoError(t, err)

	ev, done, err := sub.Poll()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, ev.Records)

	_, err = h.PutRecord(testRegion, PutRecordInput{StreamName: "orders", Data: []byte("hello"), PartitionKey: "k1"})
	require.NoError(t, err)

	ev, done, err = sub.Poll()
	require.NoError(t, err)
	assert.False(t, done)
	require.Len(t, ev.Records, 1)
	assert.Equal(t, []byte("hello"), ev.Records[0].Data)
	assert.NotEmpty(t, ev.ContinuationSequenceNumber)
}

func TestSubscribeToShardRejectsUnknownConsumer(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)
	st, _ := h.engine.Region(testRegion).StreamByName("orders")

	_, err := h.SubscribeToShard(testRegion, SubscribeToShardInput{
		ConsumerARN:      st.StreamARN + "/consumer/ghost:1",
		ShardId:          st.Shards[0].ShardID,
		StartingPosition: SubscribeStartingPosition{Type: string(seqnum.TrimHorizon)},
	})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ResourceNotFound, se.Kind)
}
