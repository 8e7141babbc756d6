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

package handlers

import (
	"github.com/trivago/kinesis-mock/internal/kmodel"
	"github.com/trivago/kinesis-mock/internal/scheduler"
)

// The three TransitionKinds every ScheduleTransition call site in this
// package reduces to. A snapshot restore rebuilds the Run closure from
// just these plus the PendingTransition's StreamName via
// Handlers.ResolveTransition - see DESIGN.md's internal/scheduler notes.
const (
	transitionActivateFromCreating scheduler.TransitionKind = "activate_from_creating"
	transitionActivateFromUpdating scheduler.TransitionKind = "activate_from_updating"
	transitionFinalizeDelete       scheduler.TransitionKind = "finalize_delete"
)

// ResolveTransition rebuilds the Run closure for a PendingTransition
// restored from a snapshot. It is passed to Engine.ResolveTransitions
// once bootstrap has both the restored engine and this Handlers.
func (h *Handlers) ResolveTransition(p scheduler.PendingTransition) (func(), bool) {
	name := p.StreamName
	switch p.Kind {
	case transitionActivateFromCreating:
		return func() {
			h.engine.Region(p.Region).Update(func(streams map[string]*kmodel.Stream) {
				st, ok := streams[name]
				if !ok || st.StreamStatus != kmodel.StreamStatusCreating {
					return
				}
				st.StreamStatus = kmodel.StreamStatusActive
			})
		}, true

	case transitionActivateFromUpdating:
		return func() {
			h.engine.Region(p.Region).Update(func(streams map[string]*kmodel.Stream) {
				if st, ok := streams[name]; ok && st.StreamStatus == kmodel.StreamStatusUpdating {
					st.StreamStatus = kmodel.StreamStatusActive
				}
			})
		}, true

	case transitionFinalizeDelete:
		return func() {
			h.engine.Region(p.Region).Update(func(streams map[string]*kmodel.Stream) {
				if st, ok := streams[name]; ok && st.StreamStatus == kmodel.StreamStatusDeleting {
					delete(streams, name)
				}
			})
		}, true

	default:
		return nil, false
	}
}
