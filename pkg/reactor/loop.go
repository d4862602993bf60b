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

// Package reactor implements a single-goroutine, callback driven event loop on top of
// pkg/netpoll: poll handles watch descriptors owned by somebody else, timer handles
// fire once or repeatedly, and closing a handle completes asynchronously in the
// closing phase of the loop iteration, after the handle has been detached.
//
// A Loop and all of its handles must be used from the goroutine that calls Run.
// Only Trigger and Stop may be called from other goroutines.
package reactor

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/panjf2000/zmqloop/pkg/logging"
	"github.com/panjf2000/zmqloop/pkg/netpoll"
)

// RunMode selects how long Run keeps iterating.
type RunMode int

const (
	// RunDefault runs until no referenced active handles remain or Stop is called.
	RunDefault RunMode = iota
	// RunOnce blocks for I/O when there is nothing else to do, then returns after one iteration.
	RunOnce
	// RunNoWait runs a single iteration without blocking for I/O.
	RunNoWait
)

// String returns a human-readable representation of the mode.
func (m RunMode) String() string {
	switch m {
	case RunDefault:
		return "default"
	case RunOnce:
		return "once"
	case RunNoWait:
		return "nowait"
	default:
		return "unknown"
	}
}

// Loop is the reactor, it owns a poller and drives every handle created from it.
type Loop struct {
	poller     *netpoll.Poller
	opts       *Options
	logger     logging.Logger
	now        time.Time
	timers     timerHeap
	posted     []func()  // work queued for the next iteration
	closing    []*handle // handles waiting for their close callbacks
	handles    int       // handles created and not yet closed
	activeRefs int       // active handles keeping the loop alive
	iteration  uint64    // completed iterations
	timerSeq   uint64
	values     map[any]any
	stopFlag   atomic.Bool
	running    bool
	closed     bool
}

// NewLoop creates a loop and opens its poller.
func NewLoop(opts ...Option) (*Loop, error) {
	options := loadOptions(opts...)
	logger := logging.OrDefault(options.Logger)
	poller, err := netpoll.OpenPoller(logger)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		poller: poller,
		opts:   options,
		logger: logger,
		values: make(map[any]any),
	}
	l.UpdateTime()
	return l, nil
}

// Close releases the poller. It fails with ErrLoopBusy while handles are open,
// including closed handles whose close callbacks haven't run yet.
func (l *Loop) Close() error {
	if l.closed {
		return ErrLoopClosed
	}
	if l.running {
		return ErrLoopRunning
	}
	if l.handles > 0 || len(l.closing) > 0 {
		return ErrLoopBusy
	}
	l.closed = true
	l.values = nil
	return l.poller.Close()
}

// Now returns the cached time of the current iteration.
func (l *Loop) Now() time.Time {
	return l.now
}

// UpdateTime refreshes the cached time.
func (l *Loop) UpdateTime() {
	l.now = time.Now()
}

// Iterations returns the number of loop iterations completed so far.
func (l *Loop) Iterations() uint64 {
	return l.iteration
}

// Alive reports whether the loop has referenced active handles, closing handles or posted work.
func (l *Loop) Alive() bool {
	return l.activeRefs > 0 || len(l.closing) > 0 || len(l.posted) > 0
}

// Logger returns the logger of the loop.
func (l *Loop) Logger() logging.Logger {
	return l.logger
}

// Post queues fn to run at the beginning of the next loop iteration.
// It must be called from the loop goroutine, use Trigger from other goroutines.
func (l *Loop) Post(fn func()) {
	if fn != nil {
		l.posted = append(l.posted, fn)
	}
}

// Trigger runs fn on the loop goroutine, it is safe to call from any goroutine.
func (l *Loop) Trigger(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}
	return l.poller.Trigger(func(any) error {
		fn()
		return nil
	}, nil)
}

// Stop makes Run return at the end of its current iteration, it is safe to call from any goroutine.
func (l *Loop) Stop() {
	l.stopFlag.Store(true)
	_ = l.poller.UrgentTrigger(func(any) error { return nil }, nil)
}

// SetValue attaches v to the loop under key, loop-scoped facilities use it to find
// their per-loop state without globals.
func (l *Loop) SetValue(key, v any) {
	if l.values != nil {
		l.values[key] = v
	}
}

// Value returns the value attached under key.
func (l *Loop) Value(key any) (any, bool) {
	v, ok := l.values[key]
	return v, ok
}

// DeleteValue removes the value attached under key.
func (l *Loop) DeleteValue(key any) {
	delete(l.values, key)
}

// Run drives the loop in the given mode.
//
// An iteration updates the cached time, runs due timers, runs posted work,
// polls for I/O (the timeout comes from the mode, the nearest timer and pending work),
// dispatches readiness to poll handles and finally runs close callbacks.
func (l *Loop) Run(mode RunMode) error {
	if l.closed {
		return ErrLoopClosed
	}
	if l.running {
		return ErrLoopRunning
	}
	if l.opts.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	l.running = true
	defer func() { l.running = false }()

	l.UpdateTime()
	// RunOnce and RunNoWait always complete one iteration so that work triggered
	// from other goroutines runs even when no handle keeps the loop alive.
	alive := l.Alive() || mode != RunDefault
	var err error
	for alive && !l.stopFlag.Load() {
		l.UpdateTime()
		l.runTimers()
		l.runPosted()

		timeout := 0
		if mode == RunDefault || (mode == RunOnce && len(l.posted) == 0) {
			timeout = l.pollTimeout()
		}
		if _, err = l.poller.Poll(timeout); err != nil {
			break
		}

		if mode == RunOnce {
			l.UpdateTime()
			l.runTimers()
		}
		l.runClosing()
		l.iteration++

		alive = l.Alive()
		if mode == RunOnce || mode == RunNoWait {
			break
		}
	}
	l.stopFlag.Store(false)
	return err
}

func (l *Loop) pollTimeout() int {
	if l.stopFlag.Load() || len(l.posted) > 0 || len(l.closing) > 0 || l.activeRefs == 0 {
		return 0
	}
	if len(l.timers) == 0 {
		return -1
	}
	delay := l.timers[0].due.Sub(l.now)
	if delay <= 0 {
		return 0
	}
	// Round up so that a timer never fires early.
	return int((delay + time.Millisecond - 1) / time.Millisecond)
}

func (l *Loop) runPosted() {
	if len(l.posted) == 0 {
		return
	}
	posted := l.posted
	l.posted = nil
	for _, fn := range posted {
		fn()
	}
}

func (l *Loop) runClosing() {
	for len(l.closing) > 0 {
		closing := l.closing
		l.closing = nil
		for _, h := range closing {
			h.finishClose()
		}
	}
}
