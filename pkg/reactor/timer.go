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

import (
	"container/heap"
	"time"
)

// TimerCallback is invoked when a timer fires.
type TimerCallback func(t *Timer)

// Timer fires its callback after a timeout, then every repeat interval if repeat is positive.
type Timer struct {
	handle
	cb     TimerCallback
	due    time.Time
	repeat time.Duration
	seq    uint64 // start order, breaks ties between timers due at the same time
	index  int    // position in the loop's heap, -1 when not scheduled
}

// NewTimer creates a stopped timer.
func (l *Loop) NewTimer() (*Timer, error) {
	if l.closed {
		return nil, ErrLoopClosed
	}
	t := &Timer{index: -1}
	t.init(l, t.Stop)
	return t, nil
}

// Start schedules the timer, restarting it if it is already scheduled.
func (t *Timer) Start(cb TimerCallback, timeout, repeat time.Duration) error {
	if t.closing {
		return ErrHandleClosing
	}
	if cb == nil {
		return ErrNilCallback
	}
	if timeout < 0 {
		timeout = 0
	}
	if repeat < 0 {
		repeat = 0
	}
	l := t.loop
	if t.index >= 0 {
		heap.Remove(&l.timers, t.index)
	}
	l.timerSeq++
	t.cb, t.repeat, t.seq = cb, repeat, l.timerSeq
	t.due = l.now.Add(timeout)
	heap.Push(&l.timers, t)
	t.setActive(true)
	return nil
}

// Stop unschedules the timer.
func (t *Timer) Stop() error {
	if t.index >= 0 {
		heap.Remove(&t.loop.timers, t.index)
	}
	t.setActive(false)
	return nil
}

// Repeat returns the repeat interval.
func (t *Timer) Repeat() time.Duration {
	return t.repeat
}

// Close stops the timer and runs cb, if not nil, in the closing phase of a loop iteration.
func (t *Timer) Close(cb func()) error {
	return t.close(cb)
}

func (l *Loop) runTimers() {
	for len(l.timers) > 0 {
		t := l.timers[0]
		if t.due.After(l.now) {
			return
		}
		heap.Pop(&l.timers)
		if t.repeat > 0 {
			l.timerSeq++
			t.due, t.seq = l.now.Add(t.repeat), l.timerSeq
			heap.Push(&l.timers, t)
		} else {
			t.setActive(false)
		}
		t.cb(t)
	}
}

// timerHeap is a min-heap of timers ordered by due time.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
