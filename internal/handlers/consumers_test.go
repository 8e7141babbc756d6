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
)

func TestRegisterAndDescribeStreamConsumer(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	regOut, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.NoError(t, err)
	assert.Equal(t, "reader", regOut.Consumer.ConsumerName)
	assert.Contains(t, regOut.Consumer.ConsumerARN, "/consumer/reader:")

	descOut, err := h.DescribeStreamConsumer(testRegion, DescribeStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.NoError(t, err)
	assert.Equal(t, regOut.Consumer.ConsumerARN, descOut.ConsumerDescription.ConsumerARN)

	descOut, err = h.DescribeStreamConsumer(testRegion, DescribeStreamConsumerInput{ConsumerARN: regOut.Consumer.ConsumerARN})
	require.NoError(t, err)
	assert.Equal(t, "reader", descOut.ConsumerDescription.ConsumerName)
}

func TestRegisterStreamConsumerRejectsDuplicateName(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)

	st, _ := h.engine.Region(testRegion).StreamByName("orders")
	_, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.NoError(t, err)

	_, err = h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ResourceInUse, se.Kind)
}

func TestRegisterStreamConsumerEnforcesLimit(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)
	st, _ := h.engine.Region(testRegion).StreamByName("orders")

	for i := 0; i < maxConsumerCount; i++ {
		_, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: consumerName(i)})
		require.NoError(t, err)
	}

	_, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "one-too-many"})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.LimitExceeded, se.Kind)
}

func TestDeregisterStreamConsumerByARN(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)
	st, _ := h.engine.Region(testRegion).StreamByName("orders")

	regOut, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.NoError(t, err)

	require.NoError(t, h.DeregisterStreamConsumer(testRegion, DeregisterStreamConsumerInput{ConsumerARN: regOut.Consumer.ConsumerARN}))

	_, err = h.DescribeStreamConsumer(testRegion, DescribeStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: "reader"})
	require.Error(t, err)
	se, ok := err.(*kerrors.ServiceError)
	require.True(t, ok)
	assert.Equal(t, kerrors.ResourceNotFound, se.Kind)
}

func TestListStreamConsumersIsSortedByName(t *testing.T) {
	h, clock := newTestHandlers(t)
	createActiveStream(t, h, clock, "orders", 1)
	st, _ := h.engine.Region(testRegion).StreamByName("orders")

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := h.RegisterStreamConsumer(testRegion, RegisterStreamConsumerInput{StreamARN: st.StreamARN, ConsumerName: name})
		require.NoError(t, err)
	}

	out, err := h.ListStreamConsumers(testRegion, ListStreamConsumersInput{StreamARN: st.StreamARN})
	require.NoError(t, err)
	require.Len(t, out.Consumers, 3)
	assert.Equal(t, "alpha", out.Consumers[0].ConsumerName)
	assert.Equal(t, "mid", out.Consumers[1].ConsumerName)
	assert.Equal(t, "zeta", out.Consumers[2].ConsumerName)
}

func consumerName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "reader-" + string(letters[i%len(letters)]) + string(rune('0'+i/len(letters)))
}
