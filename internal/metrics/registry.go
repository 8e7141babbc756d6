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

// Package metrics is this engine's single metrics registry, the role
// the teacher's core.MetricsRegistry played for gollum: every request
// handled bumps a counter or records a timing here, and the two
// exporters in this package (Prometheus, legacy plaintext dump) read
// out of it rather than each keeping their own state.
package metrics

import (
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Registry is the process-wide rcrowley/go-metrics registry every
// counter and timer in this package is registered against.
var Registry = gometrics.NewRegistry()

func init() {
	startTime := gometrics.NewGauge()
	startTime.Update(time.Now().Unix())
	Registry.Register("StartTime", startTime)
}

// RequestCounter returns the counter tracking how many times operation
// has been invoked, creating it on first use.
func RequestCounter(operation string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter("requests."+operation, Registry)
}

// ErrorCounter returns the counter tracking how many times operation
// has failed with kind, creating it on first use.
func ErrorCounter(operation, kind string) gometrics.Counter {
	return gometrics.GetOrRegisterCounter("errors."+operation+"."+kind, Registry)
}

// RequestTimer returns the timer tracking operation's latency
// distribution, creating it on first use.
func RequestTimer(operation string) gometrics.Timer {
	return gometrics.GetOrRegisterTimer("latency."+operation, Registry)
}

// Observe records one call to operation: it bumps the request counter,
// records err's kind against the error counter when non-nil, and times
// the call via d.
func Observe(operation string, d time.Duration, errKind string) {
	RequestCounter(operation).Inc(1)
	RequestTimer(operation).Update(d)
	if errKind != "" {
		ErrorCounter(operation, errKind).Inc(1)
	}
}
