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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoop(t *testing.T) *Loop {
	t.Helper()
	l, err := NewLoop()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRunWithoutHandlesReturns(t *testing.T) {
	l := newLoop(t)
	require.NoError(t, l.Run(RunDefault))
	assert.Zero(t, l.Iterations())
	require.NoError(t, l.Run(RunNoWait))
	assert.EqualValues(t, 1, l.Iterations())
}

func TestPostRunsNextIteration(t *testing.T) {
	l := newLoop(t)
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 2) })
	})
	l.Post(nil)

	require.NoError(t, l.Run(RunNoWait))
	assert.Equal(t, []int{1}, order)
	assert.True(t, l.Alive())

	require.NoError(t, l.Run(RunDefault))
	assert.Equal(t, []int{1, 2}, order)
	assert.False(t, l.Alive())
}

func TestTriggerFromAnotherGoroutine(t *testing.T) {
	l := newLoop(t)
	assert.ErrorIs(t, l.Trigger(nil), ErrNilCallback)

	var ran atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Trigger(func() { ran.Store(true) })
	}()
	<-done
	require.NoError(t, l.Run(RunNoWait))
	assert.True(t, ran.Load())
}

func TestStopInterruptsRunDefault(t *testing.T) {
	l := newLoop(t)
	tm, err := l.NewTimer()
	require.NoError(t, err)
	require.NoError(t, tm.Start(func(*Timer) {}, time.Hour, 0))

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Stop()
	}()
	require.NoError(t, l.Run(RunDefault))
	assert.True(t, tm.IsActive())

	require.NoError(t, tm.Close(nil))
	require.NoError(t, l.Run(RunDefault))
	assert.True(t, tm.IsClosed())
}

func TestCloseRequiresClosedHandles(t *testing.T) {
	l, err := NewLoop(WithLockOSThread(true))
	require.NoError(t, err)
	tm, err := l.NewTimer()
	require.NoError(t, err)
	assert.ErrorIs(t, l.Close(), ErrLoopBusy)

	require.NoError(t, tm.Close(nil))
	assert.ErrorIs(t, l.Close(), ErrLoopBusy)
	require.NoError(t, l.Run(RunDefault))

	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Close(), ErrLoopClosed)
	assert.ErrorIs(t, l.Run(RunDefault), ErrLoopClosed)
	_, err = l.NewTimer()
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestRunIsNotReentrant(t *testing.T) {
	l := newLoop(t)
	var inner, closeErr error
	l.Post(func() {
		inner = l.Run(RunNoWait)
		closeErr = l.Close()
	})
	require.NoError(t, l.Run(RunDefault))
	assert.ErrorIs(t, inner, ErrLoopRunning)
	assert.ErrorIs(t, closeErr, ErrLoopRunning)
}

func TestValues(t *testing.T) {
	type key struct{}
	l := newLoop(t)
	_, ok := l.Value(key{})
	assert.False(t, ok)
	l.SetValue(key{}, 42)
	v, ok := l.Value(key{})
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	l.DeleteValue(key{})
	_, ok = l.Value(key{})
	assert.False(t, ok)
}

func TestRunModeString(t *testing.T) {
	assert.Equal(t, "default", RunDefault.String())
	assert.Equal(t, "once", RunOnce.String())
	assert.Equal(t, "nowait", RunNoWait.String())
	assert.Equal(t, "unknown", RunMode(9).String())
}
