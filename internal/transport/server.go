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
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trivago/kinesis-mock/internal/awsauth"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/kerrors"
	"github.com/trivago/kinesis-mock/internal/metrics"
)

// Server is the single HTTP entry point every Kinesis operation comes
// through, the way the teacher's consumer.Http plugin was one
// http.Server fronting one handler func. Unlike that plugin, every
// request here is dispatched by its X-Amz-Target header rather than
// by path, since that's how the real service's single POST / endpoint
// works.
type Server struct {
	handlers      *handlers.Handlers
	defaultRegion string
	log           *logrus.Entry
	upgrader      websocketUpgrader
}

// NewServer creates a Server dispatching onto h, falling back to
// defaultRegion for any request that carries no Authorization header.
func NewServer(h *handlers.Handlers, defaultRegion string, log *logrus.Entry) *Server {
	return &Server{handlers: h, defaultRegion: defaultRegion, log: log, upgrader: newWebsocketUpgrader()}
}

// Handler returns the root http.Handler to mount on both the plain
// and TLS listeners.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Amz-Target")
	opName, err := awsauth.TargetOperation(target)
	if err != nil {
		s.writeError(w, isCBOR(r), kerrors.New(kerrors.InvalidArgument, "missing or malformed X-Amz-Target header"))
		return
	}

	if opName == "SubscribeToShard" {
		s.serveSubscribeToShard(w, r)
		return
	}

	op, ok := operations[opName]
	if !ok {
		s.writeError(w, isCBOR(r), kerrors.New(kerrors.InvalidArgument, "unsupported operation %s", opName))
		return
	}

	region, err := awsauth.RegionFromAuthorization(r.Header.Get("Authorization"), s.defaultRegion)
	if err != nil {
		s.writeError(w, isCBOR(r), kerrors.New(kerrors.InvalidArgument, "%s", err))
		return
	}

	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, isCBOR(r), kerrors.New(kerrors.InvalidArgument, "failed to read request body"))
		return
	}
	if isCBOR(r) {
		if body, err = cborToJSON(body); err != nil {
			s.writeError(w, true, kerrors.New(kerrors.InvalidArgument, "malformed CBOR request body"))
			return
		}
	}

	in, err := op.decode(body)
	if err != nil {
		s.writeError(w, isCBOR(r), kerrors.New(kerrors.InvalidArgument, "malformed request body: %s", err))
		return
	}

	start := time.Now()
	out, err := op.invoke(s.handlers, region, in)
	metrics.Observe(opName, time.Since(start), errKind(err))
	if err != nil {
		s.writeError(w, isCBOR(r), err)
		return
	}
	s.writeResult(w, isCBOR(r), out)
}

func errKind(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := err.(*kerrors.ServiceError); ok {
		return string(se.Kind)
	}
	return string(kerrors.InternalFailure)
}

func isCBOR(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "cbor")
}

// cborToJSON decodes a CBOR payload and re-encodes it as JSON so it
// can be fed through the same per-operation JSON decoders used for
// the plain JSON protocol - one decode path per operation instead of
// two.
func cborToJSON(body []byte) ([]byte, error) {
	var v interface{}
	if err := decodeCBOR(body, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (s *Server) writeResult(w http.ResponseWriter, cbor bool, v interface{}) {
	if cbor {
		payload, err := encodeCBOR(v)
		if err != nil {
			s.writeError(w, false, kerrors.Wrap(err, "failed to encode response"))
			return
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	payload, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, false, kerrors.Wrap(err, "failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// wireError is the {"__type": ..., "message": ...} body every error
// response carries, matching the real service's error shape.
type wireError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, cbor bool, err error) {
	se, ok := err.(*kerrors.ServiceError)
	if !ok {
		se = kerrors.Wrap(err, "unexpected error")
	}
	if se.Kind == kerrors.InternalFailure {
		s.log.WithError(err).Error("transport: internal failure")
	}

	status := se.Kind.HTTPStatus()
	if se.Kind == kerrors.ProvisionedThroughputExceeded {
		status = kerrors.ThrottleHTTPStatus
	}

	body := wireError{Type: string(se.Kind), Message: se.Message}
	if cbor {
		payload, encErr := encodeCBOR(body)
		if encErr != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeCBOR)
		w.WriteHeader(status)
		w.Write(payload)
		return
	}

	payload, _ := json.Marshal(body)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	w.Write(payload)
}
