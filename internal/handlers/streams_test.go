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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/kmodel"
)

func TestCreateStreamStartsCreatingThenBecomesActive(t *testing.T) {
	h, clock := newTestHandlers(t)

	require.NoError(t, h.CreateStream(testRegion, CreateStreamInput{StreamName: "orders", ShardCount: 2}))

	st, ok := h.engine.Region(testRegion).StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, kmodel.StreamStatusCreating, st.StreamStatus)
	assert.Len(t, st.Shards, 2)

	clock.Advance(h.cfg.CreateStreamDuration)
	require.Eventually(t, func() bool {
		st, _ := h.engine.Region(testRegion).StreamByName("orders")
		return st.StreamStatus == kmodel.StreamStatusActive
	}, time.Second, time.Millisecond)
}

func TestCreateStreamRejectsDuplicateName(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	err := h.CreateStream(testRegion, CreateStreamInput{StreamName: "orders", ShardCount: 1})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ResourceInUse, se.Kind)
}

func TestCreateStreamRejectsShardCountOverLimit(t *testing.T) {
	h, _ := newTestHandlers(t)
	err := h.CreateStream(testRegion, CreateStreamInput{StreamName: "orders", ShardCount: maxShardCount + 1})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ValidationError, se.Kind)
}

func TestCreateStreamEnforcesAccountShardLimit(t *testing.T) {
	h, _ := newTestHandlers(t)
	h.cfg.ShardLimit = 4

	require.NoError(t, h.CreateStream(testRegion, CreateStreamInput{StreamName: "a", ShardCount: 3}))
	err := h.CreateStream(testRegion, CreateStreamInput{StreamName: "b", ShardCount: 3})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.LimitExceeded, se.Kind)
}

func TestOnDemandStreamDefaultsToFourShards(t *testing.T) {
	h, _ := newTestHandlers(t)
	err := h.CreateStream(testRegion, CreateStreamInput{
		StreamName:        "events",
		StreamModeDetails: &StreamModeDetails{StreamMode: string(kmodel.StreamModeOnDemand)},
	})
	require.NoError(t, err)

	st, ok := h.engine.Region(testRegion).StreamByName("events")
	require.True(t, ok)
	assert.Len(t, st.Shards, 4)
	assert.Equal(t, kmodel.StreamModeOnDemand, st.StreamMode.StreamMode)
}

func TestDeleteStreamMarksDeletingThenRemoves(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	require.NoError(t, h.DeleteStream(testRegion, DeleteStreamInput{StreamName: "orders"}))

	st, ok := h.engine.Region(testRegion).StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, kmodel.StreamStatusDeleting, st.StreamStatus)

	clock.Advance(h.cfg.DeleteStreamDuration)
	require.Eventually(t, func() bool {
		_, ok := h.engine.Region(testRegion).StreamByName("orders")
		return !ok
	}, time.Second, time.Millisecond)
}

func TestDeleteStreamRejectsWithRegisteredConsumers(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	_, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.NoError(t, err)

	err = h.DeleteStream(testRegion, DeleteStreamInput{StreamName: "orders"})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ResourceInUse, se.Kind)

	require.NoError(t, h.DeleteStream(testRegion, DeleteStreamInput{StreamName: "orders", EnforceConsumerDeletion: true}))
}

func TestDescribeStreamReturnsShards(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 3)

	out, err := h.DescribeStream(testRegion, DescribeStreamInput{StreamName: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "orders", out.StreamDescription.StreamName)
	assert.Len(t, out.StreamDescription.Shards, 3)
}

func TestDescribeStreamUnknownNameIsNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)
	_, err := h.DescribeStream(testRegion, DescribeStreamInput{StreamName: "missing"})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ResourceNotFound, se.Kind)
}

func TestListStreamsIsAlphabeticalAndPaginated(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "zeta", 1)
	createActiveStream(t, h, clock, "alpha", 1)
	createActiveStream(t, h, clock, "mid", 1)

	out, err := h.ListStreams(testRegion, ListStreamsInput{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid"}, out.StreamNames)
	assert.True(t, out.HasMoreStreams)

	out, err = h.ListStreams(testRegion, ListStreamsInput{ExclusiveStartStreamName: "mid"})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta"}, out.StreamNames)
	assert.False(t, out.HasMoreStreams)
}

func TestRetentionPeriodMustStrictlyIncreaseOrDecrease(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	require.NoError(t, h.IncreaseStreamRetentionPeriod(testRegion, StreamRetentionInput{StreamName: "orders", RetentionPeriodHours: 48}))

	clock.Advance(h.cfg.UpdateStreamDuration)
	require.Eventually(t, func() bool {
		st, _ := h.engine.Region(testRegion).StreamByName("orders")
		return st.StreamStatus == kmodel.StreamStatusActive
	}, time.Second, time.Millisecond)

	err := h.IncreaseStreamRetentionPeriod(testRegion, StreamRetentionInput{StreamName: "orders", RetentionPeriodHours: 48})
	require.Error(t, err)

	require.NoError(t, h.DecreaseStreamRetentionPeriod(testRegion, StreamRetentionInput{StreamName: "orders", RetentionPeriodHours: 24}))
}

func TestAddAndRemoveTags(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	require.NoError(t, h.AddTagsToStream(testRegion, AddTagsToStreamInput{StreamName: "orders", Tags: map[string]string{"team": "checkout"}}))

	out, err := h.ListTagsForStream(testRegion, ListTagsForStreamInput{StreamName: "orders"})
	require.NoError(t, err)
	require.Len(t, out.Tags, 1)
	assert.Equal(t, "team", out.Tags[0].Key)

	require.NoError(t, h.RemoveTagsFromStream(testRegion, RemoveTagsFromStreamInput{StreamName: "orders", TagKeys: []string{"team"}}))
	out, err = h.ListTagsForStream(testRegion, ListTagsForStreamInput{StreamName: "orders"})
	require.NoError(t, err)
	assert.Empty(t, out.Tags)
}

func TestTagsRejectReservedAwsPrefix(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	err := h.AddTagsToStream(testRegion, AddTagsToStreamInput{StreamName: "orders", Tags: map[string]string{"aws:reserved": "x"}})
	require.Error(t, err)
}

func TestStartAndStopStreamEncryption(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	require.NoError(t, h.StartStreamEncryption(testRegion, StreamEncryptionInput{StreamName: "orders", EncryptionType: "KMS", KeyId: "alias/my-key"}))
	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	assert.Equal(t, kmodel.StreamStatusUpdating, st.StreamStatus)

	clock.Advance(h.cfg.UpdateStreamDuration)
	require.Eventually(t, func() bool {
		st, _ := h.engine.Region(testRegion).StreamByName("orders")
		return st.StreamStatus == kmodel.StreamStatusActive && st.EncryptionType == kmodel.EncryptionTypeKMS
	}, time.Second, time.Millisecond)

	require.NoError(t, h.StopStreamEncryption(testRegion, StreamEncryptionInput{StreamName: "orders", EncryptionType: "NONE"}))
	clock.Advance(h.cfg.UpdateStreamDuration)
	require.Eventually(t, func() bool {
		st, _ := h.engine.Region(testRegion).StreamByName("orders")
		return st.EncryptionType == kmodel.EncryptionTypeNone
	}, time.Second, time.Millisecond)
}

func TestDescribeLimitsAggregatesAcrossStreams(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "a", 2)
	createActiveStream(t, h, clock, "b", 3)

	out := h.DescribeLimits(testRegion)
	assert.Equal(t, 5, out.OpenShardCount)
	assert.Equal(t, h.cfg.ShardLimit, out.ShardLimit)
}
