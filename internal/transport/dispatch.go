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

// Package transport exposes internal/handlers over the wire protocol
// real Kinesis clients speak: a single HTTP endpoint dispatched by the
// X-Amz-Target header, JSON or CBOR encoded bodies, and a
// gorilla/websocket upgrade for the one streaming operation,
// SubscribeToShard. See SPEC_FULL.md §4.9/§4.10.
package transport

import (
	"encoding/json"

	"github.com/trivago/kinesis-mock/internal/handlers"
)

// operation is one dispatch table entry: decode the request body into
// the operation's typed input, call the handler, and hand back its
// typed output for the codec layer to render.
type operation struct {
	decode func(body []byte) (interface{}, error)
	invoke func(h *handlers.Handlers, region string, in interface{}) (interface{}, error)
}

// emptyResult is rendered as "{}" for operations whose AWS response
// body carries no fields, matching what real Kinesis returns.
type emptyResult struct{}

func decodeAs(body []byte, v interface{}) (interface{}, error) {
	if len(body) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return nil, err
	}
	return v, nil
}

// operations is the dispatch table keyed by the Kinesis_20131202.<Name>
// X-Amz-Target suffix. Every entry corresponds one-to-one with a
// method on *handlers.Handlers.
var operations = map[string]operation{
	"CreateStream": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.CreateStreamInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.CreateStream(region, *in.(*handlers.CreateStreamInput))
			return emptyResult{}, err
		},
	},
	"DeleteStream": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.DeleteStreamInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.DeleteStream(region, *in.(*handlers.DeleteStreamInput))
			return emptyResult{}, err
		},
	},
	"DescribeStream": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.DescribeStreamInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.DescribeStream(region, *in.(*handlers.DescribeStreamInput))
		},
	},
	"DescribeStreamSummary": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.DescribeStreamSummaryInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.DescribeStreamSummary(region, *in.(*handlers.DescribeStreamSummaryInput))
		},
	},
	"ListStreams": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.ListStreamsInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.ListStreams(region, *in.(*handlers.ListStreamsInput))
		},
	},
	"ListShards": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.ListShardsInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.ListShards(region, *in.(*handlers.ListShardsInput))
		},
	},
	"MergeShards": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.MergeShardsInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.MergeShards(region, *in.(*handlers.MergeShardsInput))
			return emptyResult{}, err
		},
	},
	"SplitShard": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.SplitShardInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.SplitShard(region, *in.(*handlers.SplitShardInput))
			return emptyResult{}, err
		},
	},
	"UpdateShardCount": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.UpdateShardCountInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.UpdateShardCount(region, *in.(*handlers.UpdateShardCountInput))
		},
	},
	"UpdateStreamMode": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.UpdateStreamModeInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.UpdateStreamMode(region, *in.(*handlers.UpdateStreamModeInput))
			return emptyResult{}, err
		},
	},
	"IncreaseStreamRetentionPeriod": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.StreamRetentionInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.IncreaseStreamRetentionPeriod(region, *in.(*handlers.StreamRetentionInput))
			return emptyResult{}, err
		},
	},
	"DecreaseStreamRetentionPeriod": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.StreamRetentionInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.DecreaseStreamRetentionPeriod(region, *in.(*handlers.StreamRetentionInput))
			return emptyResult{}, err
		},
	},
	"AddTagsToStream": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.AddTagsToStreamInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.AddTagsToStream(region, *in.(*handlers.AddTagsToStreamInput))
			return emptyResult{}, err
		},
	},
	"RemoveTagsFromStream": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.RemoveTagsFromStreamInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.RemoveTagsFromStream(region, *in.(*handlers.RemoveTagsFromStreamInput))
			return emptyResult{}, err
		},
	},
	"ListTagsForStream": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.ListTagsForStreamInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.ListTagsForStream(region, *in.(*handlers.ListTagsForStreamInput))
		},
	},
	"StartStreamEncryption": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.StreamEncryptionInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.StartStreamEncryption(region, *in.(*handlers.StreamEncryptionInput))
			return emptyResult{}, err
		},
	},
	"StopStreamEncryption": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.StreamEncryptionInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.StopStreamEncryption(region, *in.(*handlers.StreamEncryptionInput))
			return emptyResult{}, err
		},
	},
	"PutRecord": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.PutRecordInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.PutRecord(region, *in.(*handlers.PutRecordInput))
		},
	},
	"PutRecords": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.PutRecordsInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.PutRecords(region, *in.(*handlers.PutRecordsInput))
		},
	},
	"GetShardIterator": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.GetShardIteratorInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.GetShardIterator(region, *in.(*handlers.GetShardIteratorInput))
		},
	},
	"GetRecords": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.GetRecordsInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.GetRecords(region, *in.(*handlers.GetRecordsInput))
		},
	},
	"RegisterStreamConsumer": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.RegisterStreamConsumerInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.RegisterStreamConsumer(region, *in.(*handlers.RegisterStreamConsumerInput))
		},
	},
	"DeregisterStreamConsumer": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.DeregisterStreamConsumerInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			err := h.DeregisterStreamConsumer(region, *in.(*handlers.DeregisterStreamConsumerInput))
			return emptyResult{}, err
		},
	},
	"DescribeStreamConsumer": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.DescribeStreamConsumerInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.DescribeStreamConsumer(region, *in.(*handlers.DescribeStreamConsumerInput))
		},
	},
	"ListStreamConsumers": {
		decode: func(b []byte) (interface{}, error) { return decodeAs(b, &handlers.ListStreamConsumersInput{}) },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.ListStreamConsumers(region, *in.(*handlers.ListStreamConsumersInput))
		},
	},
	"DescribeLimits": {
		decode: func(b []byte) (interface{}, error) { return struct{}{}, nil },
		invoke: func(h *handlers.Handlers, region string, in interface{}) (interface{}, error) {
			return h.DescribeLimits(region), nil
		},
	},
}
