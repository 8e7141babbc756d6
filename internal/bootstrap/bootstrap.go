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

// Package bootstrap runs the two jobs the teacher's Coordinator ran
// around its plugin set, redirected at this engine's own startup and
// shutdown instead: creating the streams named in configuration before
// the server starts taking traffic, and persisting the engine's state
// on a ticker while it runs.
package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/kmodel"
)

// pollAttempts is how many times PreInit polls DescribeStreamSummary
// for a freshly created stream before giving up on it and moving on.
const pollAttempts = 3

// PreInit creates every stream named in cfg.InitializeStreams, fanned
// out across regions in parallel, with creation within a region bounded
// by cfg.InitializationConcurrency concurrent CreateStream calls. A
// stream that's still CREATING once its own create delay has passed is
// polled via DescribeStreamSummary, up to pollAttempts times spaced by
// that same delay, before PreInit moves on regardless - a stream stuck
// in CREATING past that point still exists and will finish transitioning
// on its own schedule, it simply isn't waited on any further.
func PreInit(ctx context.Context, h *handlers.Handlers, cfg config.Config, log *logrus.Entry) {
	if len(cfg.InitializeStreams) == 0 {
		return
	}

	byRegion := make(map[string][]config.InitialStream)
	for _, s := range cfg.InitializeStreams {
		region := s.Region
		if region == "" {
			region = cfg.AWSRegion
		}
		byRegion[region] = append(byRegion[region], s)
	}

	concurrency := cfg.InitializationConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for region, streams := range byRegion {
		region, streams := region, streams
		wg.Add(1)
		go func() {
			defer wg.Done()
			preInitRegion(ctx, h, region, streams, concurrency, cfg.CreateStreamDuration, log)
		}()
	}
	wg.Wait()
}

func preInitRegion(ctx context.Context, h *handlers.Handlers, region string, streams []config.InitialStream, concurrency int, createDelay time.Duration, log *logrus.Entry) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, s := range streams {
		s := s
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			createAndAwait(ctx, h, region, s, createDelay, log)
		}()
	}
	wg.Wait()
}

func createAndAwait(ctx context.Context, h *handlers.Handlers, region string, s config.InitialStream, createDelay time.Duration, log *logrus.Entry) {
	entry := log.WithField("region", region).WithField("stream", s.StreamName)

	err := h.CreateStream(region, handlers.CreateStreamInput{
		StreamName: s.StreamName,
		ShardCount: s.ShardCount,
	})
	if err != nil {
		entry.WithError(err).Warn("bootstrap: pre-init CreateStream failed")
		return
	}

	for attempt := 0; attempt < pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(createDelay):
		}

		out, err := h.DescribeStreamSummary(region, handlers.DescribeStreamSummaryInput{StreamName: s.StreamName})
		if err != nil {
			entry.WithError(err).Warn("bootstrap: pre-init DescribeStreamSummary failed")
			return
		}
		if out.StreamDescriptionSummary.StreamStatus != string(kmodel.StreamStatusCreating) {
			return
		}
	}
	entry.Warn("bootstrap: stream still CREATING after pre-init poll budget, continuing without it")
}
