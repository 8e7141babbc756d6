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
	"sort"
	"time"

	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/seqnum"
	"github.com/trivago/kinesis-mock/internal/shardmath"
	"github.com/trivago/kinesis-mock/internal/store"
)

// ListShards enumerates every shard of a stream, parent-first, with
// simple offset-style pagination keyed by ShardId.
func (h *Handlers) ListShards(region string, in ListShardsInput) (*ListShardsOutput, error) {
	s, name, err := h.streamRef(region, in.StreamName, in.StreamARN)
	if err != nil {
		return nil, err
	}

	maxResults := in.MaxResults
	if maxResults <= 0 || maxResults > 10000 {
		maxResults = 1000
	}

	var out *ListShardsOutput
	var opErr error
	s.View(func(streams map[string]*kmodel.Stream) {
		st, err := requireNotDeleting(streams, name)
		if err != nil {
			opErr = err
			return
		}

		shards := append([]*kmodel.Shard(nil), st.Shards...)
		sort.Slice(shards, func(i, j int) bool { return shards[i].ShardID < shards[j].ShardID })

		after := in.ExclusiveStartShardId
		if in.NextToken != "" {
			after = in.NextToken
		}
		start := 0
		if after != "" {
			for i, sh := range shards {
				if sh.ShardID > after {
					start = i
					break
				}
				start = i + 1
			}
		}
		end := start + maxResults
		if end > len(shards) {
			end = len(shards)
		}
		if start > len(shards) {
			start = len(shards)
		}

		page := shards[start:end]
		wire := make([]Shard, len(page))
		for i, sh := range page {
			wire[i] = toWireShard(sh)
		}

		out = &ListShardsOutput{Shards: wire}
		if end < len(shards) {
			out.NextToken = page[len(page)-1].ShardID
		}
	})
	return out, opErr
}

// SplitShard closes ShardToSplit and opens two children split at
// NewStartingHashKey: one covering the parent's start up to
// NewStartingHashKey-1, the other NewStartingHashKey up to the parent's end.
func (h *Handlers) SplitShard(region string, in SplitShardInput) error {
	newStart, ok := shardmath.ParseHashKey(in.NewStartingHashKey)
	if !ok {
		return kerrors.New(kerrors.InvalidArgument, "NewStartingHashKey must be a decimal integer")
	}

	s, name, err := h.streamRef(region, in.StreamName, in.StreamARN)
	if err != nil {
		return err
	}

	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireActive(streams, name)
		if err != nil {
			opErr = err
			return
		}
		if st.OpenShardCount() >= h.cfg.ShardLimit {
			opErr = kerrors.New(kerrors.LimitExceeded, "This stream has reached its open shard limit.")
			return
		}

		parent := st.ShardByID(in.ShardToSplit)
		if parent == nil || !parent.IsOpen() {
			opErr = kerrors.New(kerrors.InvalidArgument, "ShardToSplit %s is not an open shard of this stream.", in.ShardToSplit)
			return
		}

		start, _ := shardmath.ParseHashKey(parent.HashKeyRange.StartingHashKey)
		end, _ := shardmath.ParseHashKey(parent.HashKeyRange.EndingHashKey)
		if !shardmath.ValidSplitPoint(start, end, newStart) {
			opErr = kerrors.New(kerrors.InvalidArgument, "NewStartingHashKey must fall strictly inside the parent shard's hash key range.")
			return
		}

		now := h.engine.Now()
		nextIndex := len(st.Shards)

		newStartMinusOne := new(big.Int).Sub(newStart, big.NewInt(1))

		left := &kmodel.Shard{
			ShardID:             nextShardID(nextIndex),
			StreamName:          name,
			HashKeyRange:        kmodel.HashKeyRange{StartingHashKey: start.String(), EndingHashKey: newStartMinusOne.String()},
			SequenceNumberRange: kmodel.SequenceNumberRange{StartingSequenceNumber: seqnum.Encode(seqnum.SequenceNumber{ShardIndex: nextIndex, ShardCreationDate: now})},
			ParentShardID:       parent.ShardID,
			CreationDate:        now,
			ShardIndex:          nextIndex,
		}
		nextIndex++

		right := &kmodel.Shard{
			ShardID:    nextShardID(nextIndex),
			StreamName: name,
			HashKeyRange: kmodel.HashKeyRange{
				StartingHashKey: newStart.String(),
				EndingHashKey:   end.String(),
			},
			SequenceNumberRange: kmodel.SequenceNumberRange{StartingSequenceNumber: seqnum.Encode(seqnum.SequenceNumber{ShardIndex: nextIndex, ShardCreationDate: now})},
			ParentShardID:       parent.ShardID,
			CreationDate:        now,
			ShardIndex:          nextIndex,
		}

		closeSeq := seqnum.Encode(seqnum.SequenceNumber{ShardIndex: parent.ShardIndex, ByteOffset: parent.NextByteOffset, SubSequence: parent.SubSequence, ShardCreationDate: parent.CreationDate})
		parent.SequenceNumberRange.EndingSequenceNumber = &closeSeq

		st.Shards = append(st.Shards, left, right)
		st.StreamStatus = kmodel.StreamStatusUpdating
		st.ShardCountHistory = append(st.ShardCountHistory, kmodel.ShardCountEntry{Timestamp: now, ShardCount: st.OpenShardCount()})
	})
	if opErr != nil {
		return opErr
	}

	h.engine.ScheduleTransition(region, h.cfg.UpdateStreamDuration, transitionActivateFromUpdating, name, func(s *store.Store) {
		s.Update(func(streams map[string]*kmodel.Stream) {
			if st, ok := streams[name]; ok && st.StreamStatus == kmodel.StreamStatusUpdating {
				st.StreamStatus = kmodel.StreamStatusActive
			}
		})
	})
	return nil
}

// MergeShards closes ShardToMerge and AdjacentShardToMerge and opens
// one child covering their combined hash-key range.
func (h *Handlers) MergeShards(region string, in MergeShardsInput) error {
	s, name, err := h.streamRef(region, in.StreamName, in.StreamARN)
	if err != nil {
		return err
	}

	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireActive(streams, name)
		if err != nil {
			opErr = err
			return
		}

		a := st.ShardByID(in.ShardToMerge)
		b := st.ShardByID(in.AdjacentShardToMerge)
		if a == nil || !a.IsOpen() || b == nil || !b.IsOpen() {
			opErr = kerrors.New(kerrors.InvalidArgument, "ShardToMerge and AdjacentShardToMerge must both be open shards of this stream.")
			return
		}

		aStart, _ := shardmath.ParseHashKey(a.HashKeyRange.StartingHashKey)
		aEnd, _ := shardmath.ParseHashKey(a.HashKeyRange.EndingHashKey)
		bStart, _ := shardmath.ParseHashKey(b.HashKeyRange.StartingHashKey)
		bEnd, _ := shardmath.ParseHashKey(b.HashKeyRange.EndingHashKey)
		if !shardmath.Adjacent(aStart, aEnd, bStart, bEnd) {
			opErr = kerrors.New(kerrors.InvalidArgument, "ShardToMerge and AdjacentShardToMerge must be adjacent.")
			return
		}

		lowStart, highEnd := aStart, bEnd
		if bStart.Cmp(aStart) < 0 {
			lowStart, highEnd = bStart, aEnd
		}

		now := h.engine.Now()
		nextIndex := len(st.Shards)
		child := &kmodel.Shard{
			ShardID:    nextShardID(nextIndex),
			StreamName: name,
			HashKeyRange: kmodel.HashKeyRange{
				StartingHashKey: lowStart.String(),
				EndingHashKey:   highEnd.String(),
			},
			SequenceNumberRange:   kmodel.SequenceNumberRange{StartingSequenceNumber: seqnum.Encode(seqnum.SequenceNumber{ShardIndex: nextIndex, ShardCreationDate: now})},
			ParentShardID:         a.ShardID,
			AdjacentParentShardID: b.ShardID,
			CreationDate:          now,
			ShardIndex:            nextIndex,
		}

		for _, parent := range []*kmodel.Shard{a, b} {
			closeSeq := seqnum.Encode(seqnum.SequenceNumber{ShardIndex: parent.ShardIndex, ByteOffset: parent.NextByteOffset, SubSequence: parent.SubSequence, ShardCreationDate: parent.CreationDate})
			parent.SequenceNumberRange.EndingSequenceNumber = &closeSeq
		}

		st.Shards = append(st.Shards, child)
		st.StreamStatus = kmodel.StreamStatusUpdating
		st.ShardCountHistory = append(st.ShardCountHistory, kmodel.ShardCountEntry{Timestamp: now, ShardCount: st.OpenShardCount()})
	})
	if opErr != nil {
		return opErr
	}

	h.engine.ScheduleTransition(region, h.cfg.UpdateStreamDuration, transitionActivateFromUpdating, name, func(s *store.Store) {
		s.Update(func(streams map[string]*kmodel.Stream) {
			if st, ok := streams[name]; ok && st.StreamStatus == kmodel.StreamStatusUpdating {
				st.StreamStatus = kmodel.StreamStatusActive
			}
		})
	})
	return nil
}

// UpdateShardCount rebalances a PROVISIONED stream's open shards to
// TargetShardCount by repeated pairwise splits or merges (see
// rebalanceShards). The resulting ranges are equal in width only when
// the target is the current count times or divided by a power of two;
// other targets leave open shards of unequal width (2 -> 3 gives one
// half-width and two quarter-width shards).
func (h *Handlers) UpdateShardCount(region string, in UpdateShardCountInput) (*UpdateShardCountOutput, error) {
	s, name, err := h.streamRef(region, in.StreamName, in.StreamARN)
	if err != nil {
		return nil, err
	}

	var out *UpdateShardCountOutput
	var opErr error
	s.Update(func(streams map[string]*kmodel.Stream) {
		st, err := requireActive(streams, name)
		if err != nil {
			opErr = err
			return
		}
		if st.StreamMode.StreamMode != kmodel.StreamModeProvisioned {
			opErr = kerrors.New(kerrors.InvalidArgument, "UpdateShardCount is only valid for PROVISIONED streams.")
			return
		}

		current := st.OpenShardCount()
		minTarget := current / 2
		if minTarget < 1 {
			minTarget = 1
		}
		maxTarget := current * 2
		if maxTarget > h.cfg.ShardLimit {
			maxTarget = h.cfg.ShardLimit
		}
		if in.TargetShardCount < minTarget || in.TargetShardCount > maxTarget {
			opErr = kerrors.New(kerrors.InvalidArgument, "TargetShardCount must be between %d and %d.", minTarget, maxTarget)
			return
		}

		now := h.engine.Now()
		rebalanceShards(st, in.TargetShardCount, now)
		st.StreamStatus = kmodel.StreamStatusUpdating
		st.ShardCountHistory = append(st.ShardCountHistory, kmodel.ShardCountEntry{Timestamp: now, ShardCount: st.OpenShardCount()})

		out = &UpdateShardCountOutput{
			StreamName:        name,
			StreamARN:         st.StreamARN,
			CurrentShardCount: current,
			TargetShardCount:  in.TargetShardCount,
		}
	})
	if opErr != nil {
		return nil, opErr
	}

	h.engine.ScheduleTransition(region, h.cfg.UpdateStreamDuration, transitionActivateFromUpdating, name, func(s *store.Store) {
		s.Update(func(streams map[string]*kmodel.Stream) {
			if st, ok := streams[name]; ok && st.StreamStatus == kmodel.StreamStatusUpdating {
				st.StreamStatus = kmodel.StreamStatusActive
			}
		})
	})
	return out, nil
}

// rebalanceShards grows or shrinks st's open shard set to target by
// repeatedly splitting the widest open shard (to grow) or merging the
// narrowest adjacent pair (to shrink).
func rebalanceShards(st *kmodel.Stream, target int, now time.Time) {
	for st.OpenShardCount() < target {
		widest := widestOpenShard(st)
		if widest == nil {
			return
		}
		splitShardInPlace(st, widest, now)
	}
	for st.OpenShardCount() > target {
		a, b := narrowestAdjacentPair(st)
		if a == nil || b == nil {
			return
		}
		mergeShardsInPlace(st, a, b, now)
	}
}

func widestOpenShard(st *kmodel.Stream) *kmodel.Shard {
	var widest *kmodel.Shard
	var widestSpan *big.Int
	for _, sh := range st.OpenShards() {
		start, _ := shardmath.ParseHashKey(sh.HashKeyRange.StartingHashKey)
		end, _ := shardmath.ParseHashKey(sh.HashKeyRange.EndingHashKey)
		span := new(big.Int).Sub(end, start)
		if widestSpan == nil || span.Cmp(widestSpan) > 0 {
			widest, widestSpan = sh, span
		}
	}
	return widest
}

func narrowestAdjacentPair(st *kmodel.Stream) (*kmodel.Shard, *kmodel.Shard) {
	open := st.OpenShards()
	var bestA, bestB *kmodel.Shard
	var bestSpan *big.Int

	for i := 0; i < len(open); i++ {
		for j := i + 1; j < len(open); j++ {
			aStart, _ := shardmath.ParseHashKey(open[i].HashKeyRange.StartingHashKey)
			aEnd, _ := shardmath.ParseHashKey(open[i].HashKeyRange.EndingHashKey)
			bStart, _ := shardmath.ParseHashKey(open[j].HashKeyRange.StartingHashKey)
			bEnd, _ := shardmath.ParseHashKey(open[j].HashKeyRange.EndingHashKey)
			if !shardmath.Adjacent(aStart, aEnd, bStart, bEnd) {
				continue
			}
			span := new(big.Int).Sub(bEnd, aStart)
			if bStart.Cmp(aStart) < 0 {
				span = new(big.Int).Sub(aEnd, bStart)
			}
			if bestSpan == nil || span.Cmp(bestSpan) < 0 {
				bestA, bestB, bestSpan = open[i], open[j], span
			}
		}
	}
	return bestA, bestB
}

func splitShardInPlace(st *kmodel.Stream, parent *kmodel.Shard, now time.Time) {
	start, _ := shardmath.ParseHashKey(parent.HashKeyRange.StartingHashKey)
	end, _ := shardmath.ParseHashKey(parent.HashKeyRange.EndingHashKey)

	mid := new(big.Int).Add(start, end)
	mid.Div(mid, big.NewInt(2))
	if mid.Cmp(start) <= 0 {
		mid = new(big.Int).Add(start, big.NewInt(1))
	}
	midMinusOne := new(big.Int).Sub(mid, big.NewInt(1))

	nextIndex := len(st.Shards)
	left := &kmodel.Shard{
		ShardID:             nextShardID(nextIndex),
		StreamName:          st.StreamName,
		HashKeyRange:        kmodel.HashKeyRange{StartingHashKey: start.String(), EndingHashKey: midMinusOne.String()},
		SequenceNumberRange: kmodel.SequenceNumberRange{StartingSequenceNumber: seqnum.Encode(seqnum.SequenceNumber{ShardIndex: nextIndex, ShardCreationDate: now})},
		ParentShardID:       parent.ShardID,
		CreationDate:        now,
		ShardIndex:          nextIndex,
	}
	nextIndex++
	right := &kmodel.Shard{
		ShardID:             nextShardID(nextIndex),
		StreamName:          st.StreamName,
		HashKeyRange:        kmodel.HashKeyRange{StartingHashKey: mid.String(), EndingHashKey: end.String()},
		SequenceNumberRange: kmodel.SequenceNumberRange{StartingSequenceNumber: seqnum.Encode(seqnum.SequenceNumber{ShardIndex: nextIndex, ShardCreationDate: now})},
		ParentShardID:       parent.ShardID,
		CreationDate:        now,
		ShardIndex:          nextIndex,
	}

	closeSeq := seqnum.Encode(seqnum.SequenceNumber{ShardIndex: parent.ShardIndex, ByteOffset: parent.NextByteOffset, SubSequence: parent.SubSequence, ShardCreationDate: parent.CreationDate})
	parent.SequenceNumberRange.EndingSequenceNumber = &closeSeq
	st.Shards = append(st.Shards, left, right)
}

func mergeShardsInPlace(st *kmodel.Stream, a, b *kmodel.Shard, now time.Time) {
	aStart, _ := shardmath.ParseHashKey(a.HashKeyRange.StartingHashKey)
	aEnd, _ := shardmath.ParseHashKey(a.HashKeyRange.EndingHashKey)
	bStart, _ := shardmath.ParseHashKey(b.HashKeyRange.StartingHashKey)
	bEnd, _ := shardmath.ParseHashKey(b.HashKeyRange.EndingHashKey)

	lowStart, highEnd := aStart, bEnd
	if bStart.Cmp(aStart) < 0 {
		lowStart, highEnd = bStart, aEnd
	}

	nextIndex := len(st.Shards)
	child := &kmodel.Shard{
		ShardID:               nextShardID(nextIndex),
		StreamName:            st.StreamName,
		HashKeyRange:          kmodel.HashKeyRange{StartingHashKey: lowStart.String(), EndingHashKey: highEnd.String()},
		SequenceNumberRange:   kmodel.SequenceNumberRange{StartingSequenceNumber: seqnum.Encode(seqnum.SequenceNumber{ShardIndex: nextIndex, ShardCreationDate: now})},
		ParentShardID:         a.ShardID,
		AdjacentParentShardID: b.ShardID,
		CreationDate:          now,
		ShardIndex:            nextIndex,
	}

	for _, parent := range []*kmodel.Shard{a, b} {
		closeSeq := seqnum.Encode(seqnum.SequenceNumber{ShardIndex: parent.ShardIndex, ByteOffset: parent.NextByteOffset, SubSequence: parent.SubSequence, ShardCreationDate: parent.CreationDate})
		parent.SequenceNumberRange.EndingSequenceNumber = &closeSeq
	}
	st.Shards = append(st.Shards, child)
}
