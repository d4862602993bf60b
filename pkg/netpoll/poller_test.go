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

package netpoll

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	require.NoError(t, unix.SetNonblock(fds[0], true))
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func TestPollerReadEvent(t *testing.T) {
	p, err := OpenPoller(nil)
	require.NoError(t, err)
	defer p.Close() //nolint:errcheck

	r, w := newPipe(t)
	var fired int
	pa := GetPollAttachment()
	pa.FD, pa.Callback = r, func(fd int, event IOEvent, flags IOFlags) error {
		assert.Equal(t, r, fd)
		assert.True(t, IsReadEvent(event))
		assert.False(t, IsErrorEvent(event, flags))
		fired++
		buf := make([]byte, 16)
		_, _ = unix.Read(fd, buf)
		return nil
	}
	require.NoError(t, p.AddRead(pa))
	assert.True(t, p.Registered(r))
	assert.ErrorIs(t, p.AddRead(pa), ErrAlreadyRegistered)

	n, err := p.Poll(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = unix.Write(w, []byte("x"))
	require.NoError(t, err)
	n, err = p.Poll(1000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fired)

	require.NoError(t, p.ModRead(pa))
	require.NoError(t, p.Delete(r))
	assert.False(t, p.Registered(r))
	assert.ErrorIs(t, p.Delete(r), ErrNotRegistered)
	assert.ErrorIs(t, p.ModRead(pa), ErrNotRegistered)

	_, err = unix.Write(w, []byte("y"))
	require.NoError(t, err)
	n, err = p.Poll(10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, fired)
	PutPollAttachment(pa)
}

func TestPollerInvalidAttachment(t *testing.T) {
	p, err := OpenPoller(nil)
	require.NoError(t, err)
	defer p.Close() //nolint:errcheck

	assert.ErrorIs(t, p.AddRead(nil), ErrInvalidAttachment)
	assert.ErrorIs(t, p.AddRead(&PollAttachment{FD: -1, Callback: func(int, IOEvent, IOFlags) error { return nil }}), ErrInvalidAttachment)
	assert.ErrorIs(t, p.AddRead(&PollAttachment{FD: 3}), ErrInvalidAttachment)
}

func TestPollerTrigger(t *testing.T) {
	p, err := OpenPoller(nil)
	require.NoError(t, err)
	defer p.Close() //nolint:errcheck

	var order []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, p.Trigger(func(arg any) error {
			order = append(order, arg.(string))
			return nil
		}, "low"))
		assert.NoError(t, p.UrgentTrigger(func(arg any) error {
			order = append(order, arg.(string))
			return errors.New("logged, not fatal")
		}, "urgent"))
	}()
	<-done

	for i := 0; i < 10 && len(order) < 2; i++ {
		_, err = p.Poll(1000)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"urgent", "low"}, order)
}

func TestPollerManyTasks(t *testing.T) {
	p, err := OpenPoller(nil)
	require.NoError(t, err)
	defer p.Close() //nolint:errcheck

	const total = 3 * MaxTasksPerWakeup
	var ran int32
	for i := 0; i < total; i++ {
		require.NoError(t, p.Trigger(func(any) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}, nil))
	}
	for i := 0; i < 20 && atomic.LoadInt32(&ran) < total; i++ {
		_, err = p.Poll(100)
		require.NoError(t, err)
	}
	assert.EqualValues(t, total, atomic.LoadInt32(&ran))
}
