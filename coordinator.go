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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/acme/autocert"

	"github.com/trivago/kinesis-mock/internal/bootstrap"
	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/scheduler"
	"github.com/trivago/kinesis-mock/internal/transport"
)

// Coordinator owns this process's whole lifetime: it wires the engine,
// handlers and transport together, runs boot-time pre-init and the
// periodic persistence loop as supervised background tasks, and drives
// a plain shutdown sequence on SIGINT/SIGTERM - the role the teacher's
// Coordinator played over producers and consumers, redirected at one
// HTTP(S) service instead of a plugin graph.
type Coordinator struct {
	cfg      config.Config
	engine   *cache.Engine
	handlers *handlers.Handlers
	server   *transport.Server
	log      *logrus.Entry
}

// NewCoordinator wires a fresh Engine, Handlers and transport.Server
// against cfg.
func NewCoordinator(cfg config.Config, log *logrus.Entry) *Coordinator {
	engine := cache.New(scheduler.RealClock{}, cfg.AWSAccountID, log)
	h := handlers.New(engine, cfg, log)
	return &Coordinator{
		cfg:      cfg,
		engine:   engine,
		handlers: h,
		server:   transport.NewServer(h, cfg.AWSRegion, log),
		log:      log,
	}
}

// Run starts every background task, serves traffic until a shutdown
// signal arrives, and blocks until the final snapshot save and both
// HTTP listeners have stopped.
func (co *Coordinator) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go co.engine.Scheduler().Run(ctx)

	target := bootstrap.NewPersistTarget(co.cfg)
	bootstrap.LoadIfConfigured(co.engine, co.cfg, target, co.log)
	bootstrap.ResolveTransitions(co.engine, co.handlers, co.log)
	bootstrap.PreInit(ctx, co.handlers, co.cfg, co.log)

	persistDone := make(chan struct{})
	go func() {
		bootstrap.PersistLoop(ctx, co.engine, co.cfg, target, co.log)
		close(persistDone)
	}()

	plainSrv := co.startPlainListener()
	tlsSrv := co.startTLSListener()

	sigHandler := newSignalHandler()
	defer signal.Stop(sigHandler)

	co.log.Info("We be nice to them, if they be nice to us. (startup)")

	for {
		sig := <-sigHandler
		switch translateSignal(sig) {
		case signalExit:
			co.log.Info("Filthy little hobbites. They stole it from us. (shutdown)")
			cancel()
			<-persistDone
			co.shutdownListeners(plainSrv, tlsSrv)
			return

		case signalReload:
			co.log.Info("coordinator: SIGHUP received, configuration reload is handled by the config watcher")

		default:
		}
	}
}

// ReloadStreams re-runs pre-init against an updated InitializeStreams
// list, picked up by the config watcher on SIGHUP-free hot reload.
// Streams already created simply fail CreateStream with ResourceInUse,
// logged and skipped by bootstrap.PreInit - only newly-added entries
// actually create anything.
func (co *Coordinator) ReloadStreams(ctx context.Context, streams []config.InitialStream) {
	co.cfg.InitializeStreams = streams
	bootstrap.PreInit(ctx, co.handlers, co.cfg, co.log)
}

func (co *Coordinator) startPlainListener() *http.Server {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", co.cfg.PlainPort), Handler: co.server.Handler()}
	go func() {
		co.log.WithField("port", co.cfg.PlainPort).Info("coordinator: plain HTTP listener starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			co.log.WithError(err).Error("coordinator: plain HTTP listener failed")
		}
	}()
	return srv
}

// startTLSListener serves the same handler over TLS. With an explicit
// cert/key pair configured it serves those directly; otherwise it
// falls back to an autocert.Manager, issuing certificates on demand -
// useful for exposing this engine under a real hostname without
// hand-managing certificates.
func (co *Coordinator) startTLSListener() *http.Server {
	if co.cfg.TLSPort == 0 {
		return nil
	}

	srv := &http.Server{Addr: fmt.Sprintf(":%d", co.cfg.TLSPort), Handler: co.server.Handler()}
	go func() {
		co.log.WithField("port", co.cfg.TLSPort).Info("coordinator: TLS listener starting")

		var err error
		if co.cfg.TLSCert != "" && co.cfg.TLSKey != "" {
			err = srv.ListenAndServeTLS(co.cfg.TLSCert, co.cfg.TLSKey)
		} else {
			manager := &autocert.Manager{
				Prompt: autocert.AcceptTOS,
				Cache:  autocert.DirCache("autocert-cache"),
			}
			srv.TLSConfig = manager.TLSConfig()
			err = srv.ListenAndServeTLS("", "")
		}
		if err != nil && err != http.ErrServerClosed {
			co.log.WithError(err).Error("coordinator: TLS listener failed")
		}
	}()
	return srv
}

func (co *Coordinator) shutdownListeners(plainSrv, tlsSrv *http.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := plainSrv.Shutdown(shutdownCtx); err != nil {
		co.log.WithError(err).Warn("coordinator: plain HTTP listener shutdown error")
	}
	if tlsSrv != nil {
		if err := tlsSrv.Shutdown(shutdownCtx); err != nil {
			co.log.WithError(err).Warn("coordinator: TLS listener shutdown error")
		}
	}
}
