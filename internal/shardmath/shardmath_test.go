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

package shardmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvenRangesUnionIsDisjointAndComplete(t *testing.T) {
	for _, count := range []int{1, 2, 3, 7, 16} {
		ranges := EvenRanges(count)
		require.Len(t, ranges, count)

		assert.Equal(t, "0", ranges[0].Start.String())
		assert.Equal(t, MaxHashKey.String(), ranges[count-1].End.String())

		for i := 1; i < count; i++ {
			prevEnd := ranges[i-1].End
			start := ranges[i].Start
			assert.Equal(t, big.NewInt(1), new(big.Int).Sub(start, prevEnd), "range %d must start immediately after range %d ends", i, i-1)
		}
	}
}

func TestHashPartitionKeyIsDeterministic(t *testing.T) {
	a := HashPartitionKey("pk1")
	b := HashPartitionKey("pk1")
	c := HashPartitionKey("pk2")

	assert.Equal(t, 0, a.Cmp(b))
	assert.NotEqual(t, 0, a.Cmp(c))
	assert.True(t, a.Cmp(MaxHashKey) <= 0)
}

func TestValidSplitPoint(t *testing.T) {
	start := big.NewInt(0)
	end := big.NewInt(100)

	assert.True(t, ValidSplitPoint(start, end, big.NewInt(50)))
	assert.False(t, ValidSplitPoint(start, end, big.NewInt(0)))
	assert.False(t, ValidSplitPoint(start, end, big.NewInt(100)))
}

func TestAdjacent(t *testing.T) {
	assert.True(t, Adjacent(big.NewInt(0), big.NewInt(49), big.NewInt(50), big.NewInt(100)))
	assert.False(t, Adjacent(big.NewInt(0), big.NewInt(48), big.NewInt(50), big.NewInt(100)))
}
