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

// Package seqnum implements the sequence-number and shard-iterator
// codecs: the bijective mapping between a structured position inside a
// shard and the opaque decimal strings / tokens clients pass back in to
// GetRecords. See SPEC_FULL.md §6 for the fixed byte layout this must
// not drift from once it ships, since it is also the snapshot's wire
// format for shard write cursors.
package seqnum

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	version            = 2
	shardIndexWidth    = 5
	byteOffsetWidth    = 11
	subSequenceWidth   = 5
	dateWidth          = 5
	totalWidth         = shardIndexWidth + byteOffsetWidth + subSequenceWidth + dateWidth + 1
	epoch              = "2015-01-01"
	// IteratorExpiry matches spec §4.2's GetShardIterator/GetRecords contract.
	IteratorExpiry = 300 * time.Second
)

var epochTime = func() time.Time {
	t, err := time.Parse("2006-01-02", epoch)
	if err != nil {
		panic(err)
	}
	return t
}()

// SequenceNumber is the decoded form of a record's position within its
// shard. Ordering is defined by (ShardIndex, ByteOffset, SubSequence);
// ShardCreationDate and the version marker never affect order, they are
// smuggled into the tail of the encoding for bookkeeping only.
type SequenceNumber struct {
	ShardIndex        int
	ByteOffset        uint64
	SubSequence       uint64
	ShardCreationDate time.Time
}

// Encode renders a SequenceNumber as the fixed-width decimal string
// clients see. Field order in the string is (ShardIndex, ByteOffset,
// SubSequence, date, version) so that decimal/lexicographic string
// comparison agrees with (ShardIndex, ByteOffset, SubSequence) ordering.
func Encode(sn SequenceNumber) string {
	days := int(sn.ShardCreationDate.Sub(epochTime).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("%0*d%0*d%0*d%0*d%d",
		shardIndexWidth, sn.ShardIndex,
		byteOffsetWidth, sn.ByteOffset,
		subSequenceWidth, sn.SubSequence,
		dateWidth, days,
		version,
	)
}

// Decode parses a sequence number string produced by Encode. It returns
// an error for any string that isn't exactly the expected fixed width,
// including sequence numbers issued by a real Kinesis endpoint - this
// mock never needs to parse those, only its own.
func Decode(s string) (SequenceNumber, error) {
	if len(s) != totalWidth {
		return SequenceNumber{}, fmt.Errorf("seqnum: invalid length %d, want %d", len(s), totalWidth)
	}

	pos := 0
	shardIndex, err := strconv.Atoi(s[pos : pos+shardIndexWidth])
	if err != nil {
		return SequenceNumber{}, fmt.Errorf("seqnum: bad shard index: %w", err)
	}
	pos += shardIndexWidth

	byteOffset, err := strconv.ParseUint(s[pos:pos+byteOffsetWidth], 10, 64)
	if err != nil {
		return SequenceNumber{}, fmt.Errorf("seqnum: bad byte offset: %w", err)
	}
	pos += byteOffsetWidth

	subSeq, err := strconv.ParseUint(s[pos:pos+subSequenceWidth], 10, 64)
	if err != nil {
		return SequenceNumber{}, fmt.Errorf("seqnum: bad sub sequence: %w", err)
	}
	pos += subSequenceWidth

	days, err := strconv.Atoi(s[pos : pos+dateWidth])
	if err != nil {
		return SequenceNumber{}, fmt.Errorf("seqnum: bad date: %w", err)
	}

	return SequenceNumber{
		ShardIndex:        shardIndex,
		ByteOffset:        byteOffset,
		SubSequence:       subSeq,
		ShardCreationDate: epochTime.Add(time.Duration(days) * 24 * time.Hour),
	}, nil
}

// Compare orders two sequence numbers by (ShardIndex, ByteOffset,
// SubSequence), returning -1, 0 or 1 the way strings.Compare does.
func Compare(a, b SequenceNumber) int {
	switch {
	case a.ShardIndex != b.ShardIndex:
		return cmpUint(uint64(a.ShardIndex), uint64(b.ShardIndex))
	case a.ByteOffset != b.ByteOffset:
		return cmpUint(a.ByteOffset, b.ByteOffset)
	default:
		return cmpUint(a.SubSequence, b.SubSequence)
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IteratorType is the GetShardIterator ShardIteratorType enum.
type IteratorType string

// Iterator type values, see spec §4.2.
const (
	TrimHorizon         IteratorType = "TRIM_HORIZON"
	Latest              IteratorType = "LATEST"
	AtSequenceNumber    IteratorType = "AT_SEQUENCE_NUMBER"
	AfterSequenceNumber IteratorType = "AFTER_SEQUENCE_NUMBER"
	AtTimestamp         IteratorType = "AT_TIMESTAMP"
)

// ShardIterator is the decoded form of an opaque shard-iterator token:
// enough to resume a read at a fixed position in a fixed shard, plus an
// issuance time so the token can expire.
type ShardIterator struct {
	StreamName     string
	ShardID        string
	SequenceNumber string
	IteratorType   IteratorType
	IssuedAt       time.Time
}

// EncodeIterator renders a ShardIterator as the opaque base64 token
// clients pass back into GetRecords.
func EncodeIterator(it ShardIterator) (string, error) {
	payload, err := json.Marshal(it)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// DecodeIterator parses a token produced by EncodeIterator.
func DecodeIterator(token string) (ShardIterator, error) {
	payload, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return ShardIterator{}, fmt.Errorf("seqnum: invalid shard iterator")
	}
	var it ShardIterator
	if err := json.Unmarshal(payload, &it); err != nil {
		return ShardIterator{}, fmt.Errorf("seqnum: invalid shard iterator")
	}
	return it, nil
}

// Expired reports whether the iterator has outlived IteratorExpiry as
// measured against now (the caller supplies the clock so this stays
// deterministic under a virtual clock in tests).
func (it ShardIterator) Expired(now time.Time) bool {
	return now.Sub(it.IssuedAt) > IteratorExpiry
}
