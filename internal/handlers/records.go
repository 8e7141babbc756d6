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
	"sort"
	"strconv"
	"time"

	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/seqnum"
	"github.com/trivago/kinesis-mock/internal/shardmath"
)

// routeToShard picks the unique open shard whose hash-key range
// contains the routed hash: explicitHashKey if given, else
// MD5(partitionKey). Closed shards are never candidates.
func routeToShard(st *kmodel.Stream, partitionKey, explicitHashKey string) (*kmodel.Shard, error) {
	hash := shardmath.HashPartitionKey(partitionKey)
	if explicitHashKey != "" {
		parsed, ok := shardmath.ParseHashKey(explicitHashKey)
		if !ok {
			return nil, kerrors.New(kerrors.InvalidArgument, "ExplicitHashKey must be a decimal integer")
		}
		hash = parsed
	}

	for _, sh := range st.OpenShards() {
		start, _ := shardmath.ParseHashKey(sh.HashKeyRange.StartingHashKey)
		end, _ := shardmath.ParseHashKey(sh.HashKeyRange.EndingHashKey)
		if shardmath.Contains(start, end, hash) {
			return sh, nil
		}
	}
	return nil, kerrors.New(kerrors.InternalFailure, "no open shard covers the routed hash key")
}

// putOneRecord is the shared core of PutRecord and one PutRecords entry:
// validate, route, quota-check, and append.
func (h *Handlers) putOneRecord(st *kmodel.Stream, data []byte, partitionKey, explicitHashKey string) (shardID, sequenceNumber string, err error) {
	sh, err := routeToShard(st, partitionKey, explicitHashKey)
	if err != nil {
		return "", "", err
	}

	throttle := h.engine.ShardThrottle(sh.ShardID)
	if !throttle.Allow(len(data)) {
		return "", "", kerrors.New(kerrors.ProvisionedThroughputExceeded, "Rate exceeded for shard %s in stream %s under account %s.", sh.ShardID, st.StreamName, st.AwsAccountID)
	}

	now := h.engine.Now()
	offset := sh.NextByteOffset
	sub := sh.SubSequence
	sh.NextByteOffset += uint64(len(data))
	sh.SubSequence = 0

	seq := seqnum.Encode(seqnum.SequenceNumber{
		ShardIndex:        sh.ShardIndex,
		ByteOffset:        offset,
		SubSequence:       sub,
		ShardCreationDate: sh.CreationDate,
	})

	sh.Records = append(sh.Records, &kmodel.Record{
		Data:                        data,
		PartitionKey:                partitionKey,
		SequenceNumber:              seq,
		ApproximateArrivalTimestamp: now,
		EncryptionType:              st.EncryptionType,
	})

	return sh.ShardID, seq, nil
}

// PutRecord writes one record, routed by partition key or an explicit
// hash key, and returns its shard id and assigned sequence number.
func (h *Handlers) PutRecord(region string, in PutRecordInput) (*PutRecordOutput, error) {
	var fe kerrors.FieldErrors
	validateData(&fe, in.Data)
	validatePartitionKey(&fe, in.PartitionKey)
	if err := fe.Err(); err != nil {
		return nil, err
	}

	s, name, err := h.streamRef(region, in.StreamName, in.StreamARN)
	if err != nil {
		return nil, err
	}

	var out *PutRecordOutput
	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireActive(streams, name)
		if err != nil {
			opErr = err
			return
		}
		shardID, seq, err := h.putOneRecord(st, in.Data, in.PartitionKey, in.ExplicitHashKey)
		if err != nil {
			opErr = err
			return
		}
		out = &PutRecordOutput{ShardId: shardID, SequenceNumber: seq, EncryptionType: string(st.EncryptionType)}
	})
	return out, opErr
}

// PutRecords writes a batch of records, preserving request order in
// the response and reporting per-record throughput failures instead
// of failing the whole batch - the one handler spec.md calls out as
// partial-success rather than all-or-nothing.
func (h *Handlers) PutRecords(region string, in PutRecordsInput) (*PutRecordsOutput, error) {
	var fe kerrors.FieldErrors
	if len(in.Records) == 0 {
		fe.Addf("Records: must contain at least 1 record")
	}
	if len(in.Records) > maxPutRecordsEntries {
		fe.Addf("Records: must contain no more than %d records", maxPutRecordsEntries)
	}
	for i, rec := range in.Records {
		validateData(&fe, rec.Data)
		if len(rec.PartitionKey) < minPartitionKeyBytes || len(rec.PartitionKey) > maxPartitionKeyBytes {
			fe.Addf("Records[%d].PartitionKey: must be between %d and %d characters", i, minPartitionKeyBytes, maxPartitionKeyBytes)
		}
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	s, name, err := h.streamRef(region, in.StreamName, in.StreamARN)
	if err != nil {
		return nil, err
	}

	out := &PutRecordsOutput{Records: make([]PutRecordsResultEntry, len(in.Records))}
	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireActive(streams, name)
		if err != nil {
			opErr = err
			return
		}
		for i, rec := range in.Records {
			shardID, seq, err := h.putOneRecord(st, rec.Data, rec.PartitionKey, rec.ExplicitHashKey)
			if err != nil {
				out.FailedRecordCount++
				if se, ok := err.(*kerrors.ServiceError); ok {
					out.Records[i] = PutRecordsResultEntry{ErrorCode: string(se.Kind), ErrorMessage: se.Message}
				} else {
					out.Records[i] = PutRecordsResultEntry{ErrorCode: string(kerrors.InternalFailure), ErrorMessage: err.Error()}
				}
				continue
			}
			out.Records[i] = PutRecordsResultEntry{ShardId: shardID, SequenceNumber: seq}
		}
		out.EncryptionType = string(st.EncryptionType)
	})
	if opErr != nil {
		return nil, opErr
	}
	return out, nil
}

// GetShardIterator issues an opaque iterator token positioned per
// ShardIteratorType: TRIM_HORIZON starts before the first stored
// record, LATEST after the last, AT/AFTER_SEQUENCE_NUMBER at a given
// position, AT_TIMESTAMP at the first record whose arrival time is >=
// Timestamp.
func (h *Handlers) GetShardIterator(region string, in GetShardIteratorInput) (*GetShardIteratorOutput, error) {
	var fe kerrors.FieldErrors
	if in.ShardId == "" {
		fe.Addf("ShardId: is required")
	}
	itType := seqnum.IteratorType(in.ShardIteratorType)
	switch itType {
	case seqnum.TrimHorizon, seqnum.Latest, seqnum.AtSequenceNumber, seqnum.AfterSequenceNumber, seqnum.AtTimestamp:
	default:
		fe.Addf("ShardIteratorType: must be one of TRIM_HORIZON, LATEST, AT_SEQUENCE_NUMBER, AFTER_SEQUENCE_NUMBER, AT_TIMESTAMP")
	}
	if err := fe.Err(); err != nil {
		return nil, err
	}

	streamName := in.StreamName
	s, name, err := h.streamRef(region, streamName, in.StreamARN)
	if err != nil {
		return nil, err
	}

	var out *GetShardIteratorOutput
	var opErr error
	s.View(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, name)
		if err != nil {
			opErr = err
			return
		}
		sh := st.ShardByID(in.ShardId)
		if sh == nil {
			opErr = kerrors.New(kerrors.ResourceNotFound, "Shard %s not found in stream %s.", in.ShardId, name)
			return
		}

		seqValue := in.StartingSequenceNumber
		if itType == seqnum.AtTimestamp {
			ts := h.engine.Now()
			if in.Timestamp != nil {
				ts = *in.Timestamp
			}
			seqValue = strconv.FormatInt(ts.UnixNano(), 10)
		}

		token, err := seqnum.EncodeIterator(seqnum.ShardIterator{
			StreamName:     name,
			ShardID:        in.ShardId,
			SequenceNumber: seqValue,
			IteratorType:   itType,
			IssuedAt:       h.engine.Now(),
		})
		if err != nil {
			opErr = kerrors.Wrap(err, "failed to encode shard iterator")
			return
		}
		out = &GetShardIteratorOutput{ShardIterator: token}
	})
	return out, opErr
}

// GetRecords resolves a shard iterator to its stream/shard, returns up
// to Limit records (capped at maxGetRecordsLimit and maxGetRecordsBytes),
// and a NextShardIterator that is nil once a closed shard is exhausted.
func (h *Handlers) GetRecords(region string, in GetRecordsInput) (*GetRecordsOutput, error) {
	it, err := seqnum.DecodeIterator(in.ShardIterator)
	if err != nil {
		return nil, kerrors.New(kerrors.InvalidArgument, "ShardIterator is malformed")
	}
	if it.Expired(h.engine.Now()) {
		return nil, kerrors.New(kerrors.ExpiredIterator, "Iterator expired. The iterator was created at time %s.", it.IssuedAt)
	}

	limit := in.Limit
	if limit <= 0 || limit > maxGetRecordsLimit {
		limit = maxGetRecordsLimit
	}

	s := h.engine.Region(region)
	var out *GetRecordsOutput
	var opErr error
	s.View(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, it.StreamName)
		if err != nil {
			opErr = err
			return
		}
		sh := st.ShardByID(it.ShardID)
		if sh == nil {
			opErr = kerrors.New(kerrors.ResourceNotFound, "Shard %s not found in stream %s.", it.ShardID, it.StreamName)
			return
		}

		throttle := h.engine.ReadShardThrottle(sh.ShardID)
		if !throttle.Allow(1) {
			opErr = kerrors.New(kerrors.ProvisionedThroughputExceeded, "Rate exceeded for shard %s in stream %s under account %s.", sh.ShardID, st.StreamName, st.AwsAccountID)
			return
		}

		records := sortedRecords(sh.Records)
		startIdx := positionFor(records, it)

		selected := make([]RecordOutput, 0, limit)
		totalBytes := 0
		lastSeq := it.SequenceNumber
		i := startIdx
		for ; i < len(records) && len(selected) < limit; i++ {
			r := records[i]
			if totalBytes+len(r.Data) > maxGetRecordsBytes {
				break
			}
			selected = append(selected, RecordOutput{
				SequenceNumber:              r.SequenceNumber,
				ApproximateArrivalTimestamp: r.ApproximateArrivalTimestamp,
				Data:                        r.Data,
				PartitionKey:                r.PartitionKey,
				EncryptionType:              string(r.EncryptionType),
			})
			totalBytes += len(r.Data)
			lastSeq = r.SequenceNumber
		}
		if len(selected) == 0 {
			// Nothing returned: continue after the records this iterator's
			// position already skips, not after its raw value.
			lastSeq = ""
			if startIdx > 0 {
				lastSeq = records[startIdx-1].SequenceNumber
			}
		}

		out = &GetRecordsOutput{Records: selected}

		exhausted := !sh.IsOpen() && i >= len(records)
		if exhausted {
			out.NextShardIterator = nil
			out.ChildShards = childShardsOf(st, sh)
		} else {
			nextToken, encErr := seqnum.EncodeIterator(seqnum.ShardIterator{
				StreamName:     it.StreamName,
				ShardID:        it.ShardID,
				SequenceNumber: lastSeq,
				IteratorType:   seqnum.AfterSequenceNumber,
				IssuedAt:       h.engine.Now(),
			})
			if encErr != nil {
				opErr = kerrors.Wrap(encErr, "failed to encode next shard iterator")
				return
			}
			out.NextShardIterator = &nextToken
		}

		out.MillisBehindLatest = millisBehindLatest(h.engine.Now(), records, i)
	})
	return out, opErr
}

func sortedRecords(records []*kmodel.Record) []*kmodel.Record {
	out := append([]*kmodel.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ApproximateArrivalTimestamp.Equal(out[j].ApproximateArrivalTimestamp) {
			return out[i].ApproximateArrivalTimestamp.Before(out[j].ApproximateArrivalTimestamp)
		}
		return out[i].SequenceNumber < out[j].SequenceNumber
	})
	return out
}

// positionFor finds the index of the first record the iterator should
// return next.
func positionFor(records []*kmodel.Record, it seqnum.ShardIterator) int {
	switch it.IteratorType {
	case seqnum.TrimHorizon:
		return 0
	case seqnum.Latest:
		return len(records)
	case seqnum.AtSequenceNumber:
		for i, r := range records {
			if r.SequenceNumber >= it.SequenceNumber {
				return i
			}
		}
		return len(records)
	case seqnum.AfterSequenceNumber:
		for i, r := range records {
			if r.SequenceNumber > it.SequenceNumber {
				return i
			}
		}
		return len(records)
	case seqnum.AtTimestamp:
		nanos, err := strconv.ParseInt(it.SequenceNumber, 10, 64)
		if err != nil {
			return len(records)
		}
		cutoff := time.Unix(0, nanos)
		for i, r := range records {
			if !r.ApproximateArrivalTimestamp.Before(cutoff) {
				return i
			}
		}
		return len(records)
	default:
		return len(records)
	}
}

// millisBehindLatest reports how far behind the most recent arrival in
// the shard the consumer's current position is, per spec.md §4.3:
// max(0, now - lastArrival).
func millisBehindLatest(now time.Time, records []*kmodel.Record, consumedUpTo int) int64 {
	if len(records) == 0 || consumedUpTo >= len(records) {
		return 0
	}
	lastArrival := records[len(records)-1].ApproximateArrivalTimestamp
	behind := now.Sub(lastArrival).Milliseconds()
	if behind < 0 {
		return 0
	}
	return behind
}

func childShardsOf(st *kmodel.Stream, closed *kmodel.Shard) []ChildShard {
	var children []ChildShard
	for _, sh := range st.Shards {
		if sh.ParentShardID == closed.ShardID || sh.AdjacentParentShardID == closed.ShardID {
			parents := []string{sh.ParentShardID}
			if sh.AdjacentParentShardID != "" {
				parents = append(parents, sh.AdjacentParentShardID)
			}
			children = append(children, ChildShard{
				ShardId:      sh.ShardID,
				ParentShards: parents,
				HashKeyRange: HashKeyRange{StartingHashKey: sh.HashKeyRange.StartingHashKey, EndingHashKey: sh.HashKeyRange.EndingHashKey},
			})
		}
	}
	return children
}
