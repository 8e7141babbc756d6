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

// Package shardmath implements the hash-key-range arithmetic shared by
// CreateStream, PutRecord routing, SplitShard and MergeShards: the
// partition key hash computation and the big.Int range bookkeeping over
// the 2^128 keyspace.
package shardmath

import (
	"crypto/md5" //nolint:gosec // MD5 is used for partition-key routing, not security
	"math/big"
)

// MaxHashKey is 2^128 - 1, the top of the partition-key hash space.
var MaxHashKey = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	return max.Sub(max, big.NewInt(1))
}()

// HashPartitionKey computes the 128-bit unsigned integer AWS routes a
// record by when no ExplicitHashKey is given: MD5(partitionKey)
// interpreted as a big-endian unsigned integer.
func HashPartitionKey(partitionKey string) *big.Int {
	sum := md5.Sum([]byte(partitionKey)) //nolint:gosec // not a security use
	return new(big.Int).SetBytes(sum[:])
}

// EvenRanges splits [0, MaxHashKey] into count contiguous, disjoint,
// union-complete ranges - the initial shard layout for CreateStream.
func EvenRanges(count int) []struct{ Start, End *big.Int } {
	ranges := make([]struct{ Start, End *big.Int }, count)
	size := new(big.Int).Div(MaxHashKey, big.NewInt(int64(count)))

	for i := 0; i < count; i++ {
		start := new(big.Int).Mul(size, big.NewInt(int64(i)))
		var end *big.Int
		if i == count-1 {
			end = new(big.Int).Set(MaxHashKey)
		} else {
			end = new(big.Int).Mul(size, big.NewInt(int64(i+1)))
			end.Sub(end, big.NewInt(1))
		}
		ranges[i] = struct{ Start, End *big.Int }{start, end}
	}
	return ranges
}

// Contains reports whether hashKey falls within [start, end] inclusive.
func Contains(start, end, hashKey *big.Int) bool {
	return hashKey.Cmp(start) >= 0 && hashKey.Cmp(end) <= 0
}

// ParseHashKey parses a decimal hash-key string, as stored on
// HashKeyRange, into a big.Int. An invalid string yields (nil, false).
func ParseHashKey(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	return v, ok
}

// ValidSplitPoint reports whether newStart is strictly inside
// (start, end), the requirement SplitShard places on its input.
func ValidSplitPoint(start, end, newStart *big.Int) bool {
	return newStart.Cmp(start) > 0 && newStart.Cmp(end) < 0
}

// Adjacent reports whether two hash-key ranges are adjacent (one ends
// exactly where the other begins), the requirement MergeShards places
// on its two input shards.
func Adjacent(aStart, aEnd, bStart, bEnd *big.Int) bool {
	one := big.NewInt(1)
	return new(big.Int).Add(aEnd, one).Cmp(bStart) == 0 ||
		new(big.Int).Add(bEnd, one).Cmp(aStart) == 0
}
