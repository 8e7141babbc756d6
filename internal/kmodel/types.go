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

// Package kmodel holds the data model shared by every component of the
// engine: streams, shards, records, consumers and the identifiers that
// tie them together. Nothing in this package talks to a lock, a clock
// or the network - it is the vocabulary the rest of the engine shares.
package kmodel

import "time"

// StreamStatus is the lifecycle state of a Stream.
type StreamStatus string

// Stream status values, see spec §4.4.
const (
	StreamStatusCreating StreamStatus = "CREATING"
	StreamStatusActive   StreamStatus = "ACTIVE"
	StreamStatusUpdating StreamStatus = "UPDATING"
	StreamStatusDeleting StreamStatus = "DELETING"
)

// StreamMode selects provisioned capacity vs. on-demand scaling.
type StreamMode string

// Stream mode values.
const (
	StreamModeProvisioned StreamMode = "PROVISIONED"
	StreamModeOnDemand    StreamMode = "ON_DEMAND"
)

// EncryptionType selects server-side encryption for a stream.
type EncryptionType string

// Encryption type values.
const (
	EncryptionTypeNone EncryptionType = "NONE"
	EncryptionTypeKMS  EncryptionType = "KMS"
)

// ConsumerStatus is the lifecycle state of a registered consumer.
type ConsumerStatus string

// Consumer status values.
const (
	ConsumerStatusCreating ConsumerStatus = "CREATING"
	ConsumerStatusActive   ConsumerStatus = "ACTIVE"
	ConsumerStatusDeleting ConsumerStatus = "DELETING"
)

// EnhancedMetrics is the fixed set of shard-level metric names that can be
// toggled on for a stream. AWS ships exactly these seven.
var EnhancedMetrics = []string{
	"IncomingBytes",
	"IncomingRecords",
	"OutgoingBytes",
	"OutgoingRecords",
	"WriteProvisionedThroughputExceeded",
	"ReadProvisionedThroughputExceeded",
	"IteratorAgeMilliseconds",
}

// ShardCountEntry is one audit-log row of a stream's open shard count
// over time, oldest first.
type ShardCountEntry struct {
	Timestamp  time.Time
	ShardCount int
}

// HashKeyRange is an inclusive range over the 128-bit partition-key
// hash space, stored as decimal strings so it round-trips through JSON
// exactly the way AWS's wire format does.
type HashKeyRange struct {
	StartingHashKey string
	EndingHashKey   string
}

// SequenceNumberRange marks where a shard's sequence numbers start, and,
// once the shard is closed, where they end.
type SequenceNumberRange struct {
	StartingSequenceNumber string
	EndingSequenceNumber   *string
}

// Shard is one partition of a stream: an open shard accepts writes into
// its hash-key range, a closed shard only serves reads until its
// records age out of the retention window.
type Shard struct {
	ShardID               string
	StreamName            string
	HashKeyRange          HashKeyRange
	SequenceNumberRange   SequenceNumberRange
	ParentShardID         string
	AdjacentParentShardID string
	CreationDate          time.Time

	Records []*Record

	// Write cursor. NextByteOffset is the cumulative byte length of all
	// records appended since the shard was created; SubSequence counts
	// records appended within the same byte offset tick (it only moves
	// when NextByteOffset does not, which in practice is never for this
	// engine's one-record-per-offset-step accounting, but the counter
	// exists so the encoding matches spec §4.2's description exactly).
	NextByteOffset uint64
	SubSequence    uint64
	ShardIndex     int
}

// IsOpen reports whether the shard still accepts writes.
func (s *Shard) IsOpen() bool {
	return s.SequenceNumberRange.EndingSequenceNumber == nil
}

// Record is a single put record stored in a shard.
type Record struct {
	Data                        []byte
	PartitionKey                string
	SequenceNumber              string
	ApproximateArrivalTimestamp time.Time
	EncryptionType              EncryptionType
}

// Consumer is an enhanced-fan-out registration against a stream.
type Consumer struct {
	ConsumerName              string
	ConsumerARN               string
	ConsumerStatus            ConsumerStatus
	ConsumerCreationTimestamp time.Time
	StreamARN                 string
}

// StreamModeDetails wraps the stream's capacity mode.
type StreamModeDetails struct {
	StreamMode StreamMode
}

// Stream is the top level unit of identity: (region, account, name).
type Stream struct {
	Region        string
	AwsAccountID  string
	StreamName    string
	StreamARN     string
	StreamStatus  StreamStatus
	StreamMode    StreamModeDetails
	CreationTime  time.Time

	RetentionPeriodHours int

	EncryptionType EncryptionType
	KeyID          string

	ShardLevelMetrics []string

	Tags map[string]string

	Consumers map[string]*Consumer

	Shards []*Shard

	ShardCountHistory []ShardCountEntry
}

// OpenShards returns the stream's currently open shards, in shard order.
func (s *Stream) OpenShards() []*Shard {
	open := make([]*Shard, 0, len(s.Shards))
	for _, sh := range s.Shards {
		if sh.IsOpen() {
			open = append(open, sh)
		}
	}
	return open
}

// ShardByID looks up a shard by id, returning nil if absent.
func (s *Stream) ShardByID(shardID string) *Shard {
	for _, sh := range s.Shards {
		if sh.ShardID == shardID {
			return sh
		}
	}
	return nil
}

// OpenShardCount is a convenience used by limit checks and summaries.
func (s *Stream) OpenShardCount() int {
	count := 0
	for _, sh := range s.Shards {
		if sh.IsOpen() {
			count++
		}
	}
	return count
}
