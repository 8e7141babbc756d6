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
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/seqnum"
	"github.com/trivago/kinesis-mock/internal/shardmath"
)

func TestPutRecordThenGetRecordsRoundTrips(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	put, err := h.PutRecord(testRegion, PutRecordInput{StreamName: "orders", Data: []byte("hello"), PartitionKey: "k1"})
	require.NoError(t, err)
	assert.NotEmpty(t, put.SequenceNumber)

	itOut, err := h.GetShardIterator(testRegion, GetShardIteratorInput{StreamName: "orders", ShardId: put.ShardId, ShardIteratorType: string(seqnum.TrimHorizon)})
	require.NoError(t, err)

	recOut, err := h.GetRecords(testRegion, GetRecordsInput{ShardIterator: itOut.ShardIterator})
	require.NoError(t, err)
	require.Len(t, recOut.Records, 1)
	assert.Equal(t, []byte("hello"), recOut.Records[0].Data)
	assert.Equal(t, put.SequenceNumber, recOut.Records[0].SequenceNumber)
	require.NotNil(t, recOut.NextShardIterator)
}

func TestPutRecordRejectsOversizedData(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	_, err := h.PutRecord(testRegion, PutRecordInput{StreamName: "orders", Data: make([]byte, maxDataBytes+1), PartitionKey: "k1"})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ValidationError, se.Kind)
}

func TestPutRecordsReportsPartialFailureWithoutFailingBatch(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	throttle := h.engine.ShardThrottle("shardId-000000000000")
	for throttle.Allow(1) {
	}

	out, err := h.PutRecords(testRegion, PutRecordsInput{
		StreamName: "orders",
		Records: []PutRecordsRequestEntry{
			{Data: []byte("a"), PartitionKey: "k1"},
			{Data: []byte("b"), PartitionKey: "k2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.FailedRecordCount)
	for _, rec := range out.Records {
		assert.Equal(t, string(kerrors.ProvisionedThroughputExceeded), rec.ErrorCode)
	}
}

func TestGetRecordsReturnsChildShardsOnceClosedShardDrains(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	parent := st.Shards[0]
	_, err := h.PutRecord(testRegion, PutRecordInput{StreamName: "orders", Data: []byte("before-split"), PartitionKey: "k1"})
	require.NoError(t, err)

	mid := midpoint(parent.HashKeyRange.StartingHashKey, parent.HashKeyRange.EndingHashKey)
	require.NoError(t, h.SplitShard(testRegion, SplitShardInput{StreamName: "orders", ShardToSplit: parent.ShardID, NewStartingHashKey: mid}))

	itOut, err := h.GetShardIterator(testRegion, GetShardIteratorInput{StreamName: "orders", ShardId: parent.ShardID, ShardIteratorType: string(seqnum.TrimHorizon)})
	require.NoError(t, err)

	recOut, err := h.GetRecords(testRegion, GetRecordsInput{ShardIterator: itOut.ShardIterator})
	require.NoError(t, err)
	require.Len(t, recOut.Records, 1)
	assert.Nil(t, recOut.NextShardIterator)
	require.Len(t, recOut.ChildShards, 2)
}

func TestGetShardIteratorAtTimestampSkipsEarlierRecords(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	_, err := h.PutRecord(testRegion, PutRecordInput{StreamName: "orders", Data: []byte("old"), PartitionKey: "k1"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	cutoff := clock.Now()

	_, err = h.PutRecord(testRegion, PutRecordInput{StreamName: "orders", Data: []byte("new"), PartitionKey: "k1"})
	require.NoError(t, err)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	itOut, err := h.GetShardIterator(testRegion, GetShardIteratorInput{
		StreamName:        "orders",
		ShardId:           st.Shards[0].ShardID,
		ShardIteratorType: string(seqnum.AtTimestamp),
		Timestamp:         &cutoff,
	})
	require.NoError(t, err)

	recOut, err := h.GetRecords(testRegion, GetRecordsInput{ShardIterator: itOut.ShardIterator})
	require.NoError(t, err)
	require.Len(t, recOut.Records, 1)
	assert.Equal(t, []byte("new"), recOut.Records[0].Data)
}

func TestGetRecordsRejectsExpiredIterator(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	itOut, err := h.GetShardIterator(testRegion, GetShardIteratorInput{StreamName: "orders", ShardId: st.Shards[0].ShardID, ShardIteratorType: string(seqnum.TrimHorizon)})
	require.NoError(t, err)

	clock.Advance(seqnum.IteratorExpiry + time.Second)

	_, err = h.GetRecords(testRegion, GetRecordsInput{ShardIterator: itOut.ShardIterator})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ExpiredIterator, se.Kind)
}

// midpoint returns the decimal string midpoint of [start, end], used to
// drive SplitShard at a valid split point in tests.
func midpoint(start, end string) string {
	s, _ := shardmath.ParseHashKey(start)
	e, _ := shardmath.ParseHashKey(end)
	mid := new(big.Int).Add(s, e)
	mid.Div(mid, big.NewInt(2))
	return mid.String()
}
