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

package transport

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trivago/kinesis-mock/internal/awsauth"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/metrics"
)

// flushInterval is how often a live SubscribeToShard connection is
// polled for new records, per SPEC_FULL.md §4.10.
const flushInterval = time.Second

type websocketUpgrader = websocket.Upgrader

func newWebsocketUpgrader() websocketUpgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// serveSubscribeToShard upgrades the HTTP connection and pushes one
// SubscribeToShardEvent frame per flushInterval tick until the shard
// closes and drains or the client disconnects.
func (s *Server) serveSubscribeToShard(w http.ResponseWriter, r *http.Request) {
	region, err := awsauth.RegionFromAuthorization(r.Header.Get("Authorization"), s.defaultRegion)
	if err != nil {
		s.writeError(w, false, kerrors.New(kerrors.InvalidArgument, "%s", err))
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, false, kerrors.New(kerrors.InvalidArgument, "failed to read request body"))
		return
	}

	var in handlers.SubscribeToShardInput
	if err := json.Unmarshal(body, &in); err != nil {
		s.writeError(w, false, kerrors.New(kerrors.InvalidArgument, "malformed request body: %s", err))
		return
	}

	start := time.Now()
	sub, err := s.handlers.SubscribeToShard(region, in)
	metrics.Observe("SubscribeToShard", time.Since(start), errKind(err))
	if err != nil {
		s.writeError(w, false, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("transport: SubscribeToShard upgrade failed")
		return
	}
	defer conn.Close()

	s.runSubscription(conn, sub)
}

// runSubscription owns one upgraded connection's lifetime: it ticks,
// polls the subscription, writes the resulting event, and stops on
// the first write error, poll error, or shard exhaustion.
func (s *Server) runSubscription(conn *websocket.Conn, sub *handlers.Subscription) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	// A reader goroutine is required so gorilla/websocket notices the
	// peer closing the connection; this subscription never expects
	// incoming frames from the client.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			ev, done, err := sub.Poll()
			if err != nil {
				s.log.WithError(err).Warn("transport: SubscribeToShard poll failed")
				return
			}
			if writeErr := conn.WriteJSON(ev); writeErr != nil {
				return
			}
			if done {
				return
			}
		}
	}
}
