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
	"fmt"
	"net"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
)

// StartLegacyDumpServer mirrors the teacher's metricServer.go: a bare
// TCP listener that dumps the current metrics snapshot as JSON to
// whoever connects, then closes the connection. Kept alongside the
// Prometheus bridge for scripts that still poll this instead of
// scraping /prometheus.
func StartLegacyDumpServer(port int, log *logrus.Entry) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.WithError(err).Error("metrics: failed to start legacy dump server")
		return
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				log.WithError(err).Warn("metrics: legacy dump server accept failed")
				return
			}
			go handleLegacyDump(conn)
		}
	}()
}

func handleLegacyDump(conn net.Conn) {
	defer conn.Close()
	gometrics.WriteJSONOnce(Registry, conn)
}
