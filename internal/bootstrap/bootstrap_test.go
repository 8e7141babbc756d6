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

package bootstrap

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/scheduler"
)

func newTestSetup(t *testing.T, cfg config.Config) (*cache.Engine, *handlers.Handlers) {
	t.Helper()
	engine := cache.New(scheduler.RealClock{}, cfg.AWSAccountID, logrus.NewEntry(logrus.New()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Scheduler().Run(ctx)

	return engine, handlers.New(engine, cfg, logrus.NewEntry(logrus.New()))
}

func TestPreInitCreatesConfiguredStreamsAcrossRegions(t *testing.T) {
	cfg := config.Default()
	cfg.CreateStreamDuration = 5 * time.Millisecond
	cfg.InitializeStreams = []config.InitialStream{
		{Region: "us-east-1", StreamName: "orders", ShardCount: 1},
		{Region: "eu-west-1", StreamName: "events", ShardCount: 2},
	}

	engine, h := newTestSetup(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	PreInit(ctx, h, cfg, logrus.NewEntry(logrus.New()))

	st, ok := engine.Region("us-east-1").StreamByName("orders")
	require.True(t, ok)
	assert.Equal(t, kmodel.StreamStatusActive, st.StreamStatus)

	st, ok = engine.Region("eu-west-1").StreamByName("events")
	require.True(t, ok)
	assert.Equal(t, kmodel.StreamStatusActive, st.StreamStatus)
	assert.Len(t, st.Shards, 2)
}

func TestPreInitIsANoOpWithNoConfiguredStreams(t *testing.T) {
	cfg := config.Default()
	_, h := newTestSetup(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	PreInit(ctx, h, cfg, logrus.NewEntry(logrus.New()))
	_ = h
}

func TestPersistLoopSavesOnTickAndOnShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Persist.ShouldPersist = true
	cfg.Persist.Interval = 10 * time.Millisecond

	engine, h := newTestSetup(t, cfg)
	require.NoError(t, h.CreateStream("us-east-1", handlers.CreateStreamInput{StreamName: "orders", ShardCount: 1}))

	target := &countingTarget{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		PersistLoop(ctx, engine, cfg, target, logrus.NewEntry(logrus.New()))
		close(done)
	}()

	require.Eventually(t, func() bool {
		return target.saves() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.True(t, target.saves() >= 2, "expected at least one ticked save and one final save on shutdown")
}

type countingTarget struct {
	count int64
}

func (c *countingTarget) Save(e *cache.Engine) error {
	atomic.AddInt64(&c.count, 1)
	return nil
}

func (c *countingTarget) Load(e *cache.Engine) error { return nil }

func (c *countingTarget) saves() int64 { return atomic.LoadInt64(&c.count) }
