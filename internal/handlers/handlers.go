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
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/store"
)

// Limits enumerated in spec.md §6 that handlers must enforce.
const (
	maxShardCount        = 10000
	maxDataBytes         = 1 << 20
	maxPartitionKeyBytes = 256
	minPartitionKeyBytes = 1
	maxTagCount          = 50
	maxConsumerCount     = 20
	minRetentionHours    = 24
	maxRetentionHours    = 8760
	maxGetRecordsLimit   = 10000
	maxGetRecordsBytes   = 10 << 20
	maxPutRecordsEntries = 500
)

// Handlers implements every Kinesis operation over a shared engine.
// One Handlers value is created at startup and is safe for concurrent
// use by every request goroutine - it holds no per-request state.
type Handlers struct {
	engine *cache.Engine
	cfg    config.Config
	log    *logrus.Entry
}

// New creates a Handlers bound to engine, using cfg's limits and
// delays and log for request-scoped logging.
func New(engine *cache.Engine, cfg config.Config, log *logrus.Entry) *Handlers {
	return &Handlers{engine: engine, cfg: cfg, log: log}
}

// streamRef resolves a StreamName/StreamARN pair (exactly one of which
// every operation accepts) down to the store and stream it names.
func (h *Handlers) streamRef(region, streamName, streamARN string) (*store.Store, string, error) {
	var fe kerrors.FieldErrors
	if streamName == "" && streamARN == "" {
		fe.Addf("StreamName or StreamARN: one of these is required")
	}
	if err := fe.Err(); err != nil {
		return nil, "", err
	}

	s := h.engine.Region(region)
	if streamARN != "" {
		name, err := kmodel.StreamNameFromARN(streamARN)
		if err != nil {
			return nil, "", kerrors.New(kerrors.InvalidArgument, "StreamARN is malformed")
		}
		return s, name, nil
	}
	return s, streamName, nil
}

// requireStream loads a stream by name, returning ResourceNotFound if
// it doesn't exist in this region.
func requireStream(streams map[string]*kmodel.Stream, streamName string) (*kmodel.Stream, error) {
	st, ok := streams[streamName]
	if !ok {
		return nil, kerrors.New(kerrors.ResourceNotFound, "Stream %s under account not found.", streamName)
	}
	return st, nil
}

// requireNotDeleting loads a stream and rejects it if it is DELETING,
// the precondition every describe/list/get operation shares except
// DescribeStreamSummary, which is explicitly exempt and uses
// requireStream directly.
func requireNotDeleting(streams map[string]*kmodel.Stream, streamName string) (*kmodel.Stream, error) {
	st, err := requireStream(streams, streamName)
	if err != nil {
		return nil, err
	}
	if st.StreamStatus == kmodel.StreamStatusDeleting {
		return nil, kerrors.New(kerrors.ResourceNotFound, "Stream %s under account not found.", streamName)
	}
	return st, nil
}

// requireActive loads a stream and checks it is ACTIVE, the
// precondition most mutating operations share.
func requireActive(streams map[string]*kmodel.Stream, streamName string) (*kmodel.Stream, error) {
	st, err := requireStream(streams, streamName)
	if err != nil {
		return nil, err
	}
	if st.StreamStatus != kmodel.StreamStatusActive {
		return nil, kerrors.New(kerrors.ResourceInUse, "Stream %s is not in ACTIVE state, current state is %s.", streamName, st.StreamStatus)
	}
	return st, nil
}

func validatePartitionKey(fe *kerrors.FieldErrors, key string) {
	if len(key) < minPartitionKeyBytes || len(key) > maxPartitionKeyBytes {
		fe.Addf("PartitionKey: must be between %d and %d characters", minPartitionKeyBytes, maxPartitionKeyBytes)
	}
}

func validateData(fe *kerrors.FieldErrors, data []byte) {
	if len(data) == 0 {
		fe.Addf("Data: must not be empty")
	}
	if len(data) > maxDataBytes {
		fe.Addf("Data: must be less than or equal to %d bytes", maxDataBytes)
	}
}

func validateStreamName(fe *kerrors.FieldErrors, name string) {
	if name == "" {
		return
	}
	if len(name) > 128 {
		fe.Addf("StreamName: must be no more than 128 characters")
	}
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '_' || r == '.' || r == '-'
		if !ok {
			fe.Addf("StreamName: must match [a-zA-Z0-9_.-]+")
			break
		}
	}
}

func validateRetentionHours(fe *kerrors.FieldErrors, hours int) {
	if hours < minRetentionHours || hours > maxRetentionHours {
		fe.Addf("RetentionPeriodHours: must be between %d and %d", minRetentionHours, maxRetentionHours)
	}
}

func validateTags(fe *kerrors.FieldErrors, tags map[string]string) {
	if len(tags) > maxTagCount {
		fe.Addf("Tags: must not contain more than %d entries", maxTagCount)
	}
	for k := range tags {
		if k == "" || len(k) > 128 {
			fe.Addf("Tags: key %q must be between 1 and 128 characters", k)
		}
		if strings.HasPrefix(k, "aws:") {
			fe.Addf("Tags: key %q must not start with the reserved prefix aws:", k)
		}
	}
}

func nextShardID(n int) string {
	return fmt.Sprintf("shardId-%012d", n)
}

func parseShardIndex(shardID string) (int, bool) {
	const prefix = "shardId-"
	if !strings.HasPrefix(shardID, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(shardID, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
