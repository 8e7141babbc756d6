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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/snapshot"
)

// persistTarget is whichever of the two snapshot.go backends
// PersistLoop was configured to use.
type persistTarget interface {
	Save(e *cache.Engine) error
	Load(e *cache.Engine) error
}

// fileTarget adapts the package-level SaveFile/LoadFile functions to
// persistTarget, since they take a path argument instead of holding
// one.
type fileTarget struct {
	path string
}

func (f fileTarget) Save(e *cache.Engine) error { return snapshot.SaveFile(e, f.path) }
func (f fileTarget) Load(e *cache.Engine) error { return snapshot.LoadFile(e, f.path) }

// NewPersistTarget picks the snapshot backend cfg.Persist names: Redis
// if UseRedis is set, otherwise the local file at cfg.Persist.Path.
func NewPersistTarget(cfg config.Config) persistTarget {
	if cfg.Persist.UseRedis {
		return snapshot.NewRedisTarget(cfg.Persist.RedisAddr, cfg.Persist.RedisKey)
	}
	return fileTarget{path: cfg.Persist.Path}
}

// LoadIfConfigured restores e from target when cfg.Persist.LoadIfExists
// is set, so a restart against an existing snapshot resumes with its
// prior streams instead of starting empty.
func LoadIfConfigured(e *cache.Engine, cfg config.Config, target persistTarget, log *logrus.Entry) {
	if !cfg.Persist.LoadIfExists {
		return
	}
	if err := target.Load(e); err != nil {
		log.WithError(err).Warn("bootstrap: loading snapshot failed, starting empty")
	}
}

// ResolveTransitions rebuilds and reschedules every transition staged by
// a snapshot restore, now that h exists to reconstruct each one's Run
// closure. Must run after LoadIfConfigured and before the engine starts
// taking traffic, or a stream restored mid CREATING/UPDATING/DELETING
// would stay stuck in that status forever.
func ResolveTransitions(e *cache.Engine, h *handlers.Handlers, log *logrus.Entry) {
	e.ResolveTransitions(h.ResolveTransition, log)
}

// PersistLoop saves e to target every cfg.Persist.Interval until ctx is
// canceled, at which point it saves once more - the teacher's
// multiplexer ran its own ticker loop the same way, just driving
// metrics sampling instead of persistence.
func PersistLoop(ctx context.Context, e *cache.Engine, cfg config.Config, target persistTarget, log *logrus.Entry) {
	if !cfg.Persist.ShouldPersist {
		return
	}

	interval := cfg.Persist.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := target.Save(e); err != nil {
				log.WithError(err).Warn("bootstrap: final snapshot save failed")
			}
			return
		case <-ticker.C:
			if err := target.Save(e); err != nil {
				log.WithError(err).Warn("bootstrap: periodic snapshot save failed")
			}
		}
	}
}
