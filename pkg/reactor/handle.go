// Copyright (c) 2026 The Gnet Authors. All rights reserved.
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

//go:build darwin || dragonfly || freebsd || linux

package reactor

// handle carries the state shared by every kind of handle.
type handle struct {
	loop    *Loop
	stop    func() error // detaches the concrete handle from the loop
	onClose func()
	active  bool
	unref   bool
	closing bool
	closed  bool
}

func (h *handle) init(l *Loop, stop func() error) {
	h.loop, h.stop = l, stop
	l.handles++
}

func (h *handle) setActive(active bool) {
	if h.active == active {
		return
	}
	h.active = active
	if h.unref {
		return
	}
	if active {
		h.loop.activeRefs++
	} else {
		h.loop.activeRefs--
	}
}

// Loop returns the loop the handle belongs to.
func (h *handle) Loop() *Loop {
	return h.loop
}

// IsActive reports whether the handle is started.
func (h *handle) IsActive() bool {
	return h.active
}

// IsClosing reports whether Close was called on the handle.
func (h *handle) IsClosing() bool {
	return h.closing
}

// IsClosed reports whether the close callback of the handle has run.
func (h *handle) IsClosed() bool {
	return h.closed
}

// Unref stops the handle from keeping a RunDefault loop alive.
func (h *handle) Unref() {
	if h.unref {
		return
	}
	if h.active {
		h.loop.activeRefs--
	}
	h.unref = true
}

// Ref reverts Unref.
func (h *handle) Ref() {
	if !h.unref {
		return
	}
	h.unref = false
	if h.active {
		h.loop.activeRefs++
	}
}

// HasRef reports whether the handle keeps the loop alive when active.
func (h *handle) HasRef() bool {
	return !h.unref
}

// close stops the handle right away and schedules cb for the closing phase of the
// current (or, outside Run, the next) loop iteration.
func (h *handle) close(cb func()) error {
	if h.closing {
		return ErrHandleClosing
	}
	err := h.stop()
	h.closing, h.onClose = true, cb
	h.loop.closing = append(h.loop.closing, h)
	return err
}

func (h *handle) finishClose() {
	h.closed = true
	h.loop.handles--
	cb := h.onClose
	h.onClose = nil
	if cb != nil {
		cb()
	}
}
