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

package zmqloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panjf2000/zmqloop/pkg/errors"
	"github.com/panjf2000/zmqloop/pkg/reactor"
	"github.com/panjf2000/zmqloop/pkg/zsock"
)

func TestStartReaperInvalidArguments(t *testing.T) {
	ctx := newContext(t, zsock.WithIOThreads(0))
	loop := newLoop(t)

	r, err := StartReaper(nil, ctx)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Nil(t, r)
	r, err = StartReaper(loop, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.Nil(t, r)

	assert.ErrorIs(t, StopReaper(nil), errors.ErrInvalidArgument)
	assert.ErrorIs(t, StopReaper(loop), errors.ErrInvalidArgument)
	var nilReaper *Reaper
	assert.ErrorIs(t, nilReaper.Stop(), errors.ErrInvalidArgument)
}

func TestReaperIsIdempotentPerLoop(t *testing.T) {
	ctx := newContext(t, zsock.WithIOThreads(0))
	loop := newLoop(t)

	r, err := StartReaper(loop, ctx, WithReaperInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, r.Interval())
	again, err := StartReaper(loop, ctx)
	require.NoError(t, err)
	assert.Same(t, r, again)
	_, err = StartReaper(loop, newContext(t, zsock.WithIOThreads(0)))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	if v, ok := loop.Value(reaperKey{}); assert.True(t, ok) {
		assert.Same(t, r, v)
	}

	other := newLoop(t)
	r2, err := StartReaper(other, ctx)
	require.NoError(t, err)
	assert.NotSame(t, r, r2)
	assert.Equal(t, DefaultReaperInterval, r2.Interval())

	require.NoError(t, StopReaper(loop))
	assert.ErrorIs(t, StopReaper(loop), errors.ErrInvalidArgument)
	assert.ErrorIs(t, r.Stop(), errors.ErrInvalidArgument)
	require.NoError(t, r2.Stop())

	r3, err := StartReaper(loop, ctx)
	require.NoError(t, err)
	assert.NotSame(t, r, r3)
	require.NoError(t, r3.Stop())

	for _, l := range []*reactor.Loop{loop, other} {
		require.NoError(t, l.Run(reactor.RunNoWait))
		assert.NoError(t, l.Close())
	}
}

func TestReaperDoesNotKeepLoopAlive(t *testing.T) {
	ctx := newContext(t, zsock.WithIOThreads(0))
	loop := newLoop(t)
	_, err := StartReaper(loop, ctx)
	require.NoError(t, err)

	assert.False(t, loop.Alive())
	done := make(chan error, 1)
	go func() { done <- loop.Run(reactor.RunDefault) }()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop kept running with only a reaper")
	}
	require.NoError(t, StopReaper(loop))
	require.NoError(t, loop.Run(reactor.RunNoWait))
}

func TestReaperReapsClosedSockets(t *testing.T) {
	ctx := newContext(t, zsock.WithIOThreads(0))
	loop := newLoop(t)
	logger := new(recordingLogger)
	r, err := StartReaper(loop, ctx, WithReaperInterval(time.Millisecond), WithReaperLogger(logger))
	require.NoError(t, err)

	s, err := ctx.NewSocket(zsock.Rep)
	require.NoError(t, err)
	require.NoError(t, s.Bind("inproc://reaped"))
	b, err := Register(loop, s, discard, nil)
	require.NoError(t, err)
	require.NoError(t, b.Free())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, ctx.Pending())

	runUntil(t, loop, func() bool { return ctx.Pending() == 0 })
	assert.Equal(t, 1, r.Reaped())
	assert.Equal(t, StateFreed, b.State())

	s, err = ctx.NewSocket(zsock.Rep)
	require.NoError(t, err)
	assert.NoError(t, s.Bind("inproc://reaped"))
	require.NoError(t, r.Stop())
	require.NoError(t, loop.Run(reactor.RunNoWait))
	assert.Empty(t, logger.errors)
}

func TestCreateCloseCyclesWithoutIOThreads(t *testing.T) {
	ctx := newContext(t, zsock.WithIOThreads(0))
	loop := newLoop(t)
	_, err := StartReaper(loop, ctx, WithReaperInterval(time.Millisecond))
	require.NoError(t, err)

	const cycles = 100
	for i := 0; i < cycles; i++ {
		s, err := ctx.NewSocket(zsock.Rep)
		require.NoError(t, err)
		b, err := Register(loop, s, discard, nil)
		require.NoError(t, err)
		require.NoError(t, b.Free())
		require.NoError(t, s.Close())
	}
	assert.Equal(t, cycles, ctx.Pending())

	runUntil(t, loop, func() bool { return ctx.Pending() == 0 })
	require.NoError(t, StopReaper(loop))
	require.NoError(t, loop.Run(reactor.RunNoWait))
	assert.NoError(t, loop.Close())
}
