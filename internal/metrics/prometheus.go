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

package metrics

import (
	"context"
	"net/http"
	"time"

	promMetrics "github.com/CrowdStrike/go-metrics-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// StartPrometheusBridge bridges Registry onto a Prometheus registry and
// serves it at /prometheus on address, mirroring the teacher's
// startPrometheusMetricsService but reading from this package's own
// Registry instead of gollum's core.MetricsRegistry. The returned stop
// function shuts the bridge and its HTTP server down.
func StartPrometheusBridge(address string, log *logrus.Entry) func() {
	mux := http.NewServeMux()
	srv := &http.Server{Addr: address, Handler: mux}
	quit := make(chan struct{})

	promRegistry := prometheus.NewRegistry()
	flushInterval := 3 * time.Second
	bridge := promMetrics.NewPrometheusProvider(Registry, "kinesis_mock", "", promRegistry, flushInterval)

	go func() {
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := bridge.UpdatePrometheusMetricsOnce(); err != nil {
					log.WithError(err).Warn("metrics: failed to update prometheus bridge")
				}
			case <-quit:
				return
			}
		}
	}()

	mux.Handle("/prometheus", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{
		ErrorLog:      log,
		ErrorHandling: promhttp.ContinueOnError,
	}))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics: prometheus http server failed")
		}
	}()

	log.WithField("address", address).Info("metrics: started prometheus bridge")

	return func() {
		close(quit)
		if err := srv.Shutdown(context.Background()); err != nil {
			log.WithError(err).Error("metrics: failed to shut down prometheus http server")
		}
	}
}
