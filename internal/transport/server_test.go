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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivago/kinesis-mock/internal/cache"
	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/handlers"
	"github.com/trivago/kinesis-mock/internal/scheduler"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	clock := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	engine := cache.New(clock, "000000000000", logrus.NewEntry(logrus.New()))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go engine.Scheduler().Run(ctx)

	h := handlers.New(engine, config.Default(), logrus.NewEntry(logrus.New()))
	srv := NewServer(h, config.Default().AWSRegion, logrus.NewEntry(logrus.New()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, target string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(string(payload)))
	require.NoError(t, err)
	req.Header.Set("X-Amz-Target", "Kinesis_20131202."+target)
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential=AKID/20240101/us-east-1/kinesis/aws4_request")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestCreateStreamThenDescribeStreamSummaryOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, "CreateStream", map[string]interface{}{"StreamName": "orders", "ShardCount": 1})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, ts, "DescribeStreamSummary", map[string]interface{}{"StreamName": "orders"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	summary, ok := body["StreamDescriptionSummary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "orders", summary["StreamName"])
}

func TestUnknownOperationIsRejected(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doRequest(t, ts, "NotARealOperation", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["__type"])
}

func TestDescribeStreamNotFoundRendersResourceNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doRequest(t, ts, "DescribeStream", map[string]interface{}{"StreamName": "missing"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ResourceNotFoundException", body["__type"])
}
