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
	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/seqnum"
)

// Subscription is a live SubscribeToShard session: a consumer/shard
// pair pinned at a starting position. internal/transport drives it by
// calling Poll on a ticker and pushing what it returns as a websocket
// frame, until the shard closes and drains or the connection drops.
type Subscription struct {
	h          *Handlers
	region     string
	streamName string
	shardID    string
	iterator   string
}

// SubscribeToShard validates the (consumerARN, shardId) pair and the
// requested starting position, and returns a Subscription positioned
// there. It does no I/O beyond the initial validation; event
// production happens in Poll, called repeatedly by the transport.
func (h *Handlers) SubscribeToShard(region string, in SubscribeToShardInput) (*Subscription, error) {
	var fe kerrors.FieldErrors
	if in.ConsumerARN == "" {
		fe.Addf("ConsumerARN: is required")
	}
	if in.ShardId == "" {
		fe.Addf("ShardId: is required")
	}
	itType := seqnum.IteratorType(in.StartingPosition.Type)
	switch itType {
	case seqnum.TrimHorizon, seqnum.Latest, seqnum.AtSequenceNumber, seqnum.AfterSequenceNumber, seqnum.AtTimestamp:
	default:
		fe.Addf("StartingPosition.Type: must be one of TRIM_HORIZON, LATEST, AT_SEQUENCE_NUMBER, AFTER_SEQUENCE_NUMBER, AT_TIMESTAMP")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	streamName, err := kmodel.StreamNameFromARN(in.ConsumerARN)
	if err != nil {
		return nil, kerrors.New(kerrors.InvalidArgument, "ConsumerARN is malformed")
	}

	s := h.engine.Region(region)
	var consumer *kmodel.Consumer
	var opErr error
	s.View(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, streamName)
		if err != nil {
			opErr = err
			return
		}
		if st.ShardByID(in.ShardId) == nil {
			opErr = kerrors.New(kerrors.ResourceNotFound, "Shard %s not found in stream %s.", in.ShardId, streamName)
			return
		}
		for _, c := range st.Consumers {
			if c.ConsumerARN == in.ConsumerARN {
				consumer = c
				break
			}
		}
		if consumer == nil {
			opErr = kerrors.New(kerrors.ResourceNotFound, "Consumer %s not found.", in.ConsumerARN)
		}
	})
	if opErr != nil {
		return nil, opErr
	}

	itOut, err := h.GetShardIterator(region, GetShardIteratorInput{
		StreamName:             streamName,
		ShardId:                in.ShardId,
		ShardIteratorType:      in.StartingPosition.Type,
		StartingSequenceNumber: in.StartingPosition.SequenceNumber,
		Timestamp:              in.StartingPosition.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	return &Subscription{h: h, region: region, streamName: streamName, shardID: in.ShardId, iterator: itOut.ShardIterator}, nil
}

// Poll fetches the next batch of records and renders it as a
// SubscribeToShardEvent, advancing the subscription's cursor. done is
// true once the shard has closed and been fully drained, at which
// point the caller should close the stream after sending ev.
func (s *Subscription) Poll() (ev *SubscribeToShardEvent, done bool, err error) {
	out, err := s.h.GetRecords(s.region, GetRecordsInput{ShardIterator: s.iterator})
	if err != nil {
		return nil, false, err
	}

	ev = &SubscribeToShardEvent{
		Records:            out.Records,
		MillisBehindLatest: out.MillisBehindLatest,
		ChildShards:        out.ChildShards,
	}
	if len(out.Records) > 0 {
		ev.ContinuationSequenceNumber = out.Records[len(out.Records)-1].SequenceNumber
	}

	if out.NextShardIterator == nil {
		return ev, true, nil
	}
	s.iterator = *out.NextShardIterator
	return ev, false, nil
}
