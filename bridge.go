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
	goerrors "errors"
	"fmt"
	"time"

	"github.com/panjf2000/zmqloop/pkg/errors"
	"github.com/panjf2000/zmqloop/pkg/logging"
	"github.com/panjf2000/zmqloop/pkg/reactor"
	"github.com/panjf2000/zmqloop/pkg/zsock"
)

// Socket is the message socket a Bridge drains, *zsock.Socket implements it.
type Socket interface {
	// FD returns the signaling descriptor, readable after the socket state changed.
	FD() (int, error)
	// Events reports whether the socket can receive or send without blocking.
	Events() (zsock.Events, error)
	// RecvMsg receives a message, with zsock.DontWait it fails with zsock.ErrAgain when nothing is queued.
	RecvMsg(flags zsock.Flag) (*zsock.Message, error)
	// Poll waits up to timeout until one of events is reported.
	Poll(events zsock.Events, timeout time.Duration) (zsock.Events, error)
}

// RecvHandler is called on the loop goroutine for every message drained from the socket.
// It owns msg and must Close it or move it to a socket with SendMsg.
type RecvHandler func(b *Bridge, msg *zsock.Message, userData any)

// BridgeState is the lifecycle state of a Bridge.
type BridgeState int32

const (
	// StateOpen means the bridge drains the socket on readiness.
	StateOpen BridgeState = iota
	// StateClosed means Close was called, readiness is ignored.
	StateClosed
	// StateFreeing means Free was called and the reactor hasn't completed the close yet.
	StateFreeing
	// StateFreed means the bridge released everything, it must not be used anymore.
	StateFreed
)

// String returns the name of the state.
func (s BridgeState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFreeing:
		return "freeing"
	case StateFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// Bridge connects a socket to a reactor loop. It neither owns the loop nor the socket:
// the socket must outlive the bridge and must not be closed before Free.
// A Bridge is confined to the goroutine running its loop.
type Bridge struct {
	loop     *reactor.Loop
	sock     Socket
	fd       int
	onRecv   RecvHandler
	userData any
	poll     *reactor.Poll
	opts     *Options
	logger   logging.Logger

	state    BridgeState
	pending  int    // close completions the bridge waits for before releasing
	received uint64 // messages handed to onRecv
	resuming bool   // a continuation drain is posted
}

// Register starts watching sock on loop. Every readiness event of the signaling
// descriptor drains the socket into onRecv. A nil onRecv consumes readiness without
// receiving anything, queued messages are then left for the owner of the socket.
func Register(loop *reactor.Loop, sock Socket, onRecv RecvHandler, userData any, opts ...Option) (*Bridge, error) {
	if loop == nil || isNilSocket(sock) {
		return nil, errors.ErrInvalidArgument
	}
	options := loadOptions(opts...)

	fd, err := sock.FD()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrDescriptorUnavailable, err)
	}

	b := &Bridge{
		loop:     loop,
		sock:     sock,
		fd:       fd,
		onRecv:   onRecv,
		userData: userData,
		opts:     options,
		logger:   logging.OrDefault(options.Logger),
	}
	poll, err := loop.NewPoll(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrRegistrationFailed, err)
	}
	if err = poll.Start(reactor.Readable, b.onReadable); err != nil {
		_ = poll.Close(nil)
		return nil, fmt.Errorf("%w: %w", errors.ErrRegistrationFailed, err)
	}
	b.poll = poll
	b.logger.Debugf("bridge registered on fd=%d", fd)
	return b, nil
}

func isNilSocket(sock Socket) bool {
	if sock == nil {
		return true
	}
	s, ok := sock.(*zsock.Socket)
	return ok && s == nil
}

// Close stops delivering messages, the socket stays watched until Free.
func (b *Bridge) Close() error {
	if b == nil {
		return errors.ErrInvalidArgument
	}
	switch b.state {
	case StateOpen:
		b.state = StateClosed
		b.logger.Debugf("bridge on fd=%d closed", b.fd)
		return nil
	case StateClosed:
		return errors.ErrAlreadyClosed
	default:
		return errors.ErrInvalidArgument
	}
}

// Free closes the bridge if needed, stops watching the socket and releases the bridge.
// The socket itself is left untouched and can be closed by its owner once Free returns.
//
// With asynchronous close the bridge is released by the reactor close completion, which
// runs in the closing phase of a loop iteration; State reports StateFreeing until then.
// Calling Free on a bridge that is being or has been freed fails with ErrInvalidArgument.
func (b *Bridge) Free() error {
	if b == nil {
		return errors.ErrInvalidArgument
	}
	switch b.state {
	case StateFreeing, StateFreed:
		return errors.ErrInvalidArgument
	case StateOpen:
		b.state = StateClosed
	}

	if b.opts.SyncClose {
		if err := b.poll.Stop(); err != nil {
			b.logger.Warnf("failed to stop polling fd=%d: %v", b.fd, err)
		}
		// Nobody waits for the completion, the loop only needs it for its own bookkeeping.
		_ = b.poll.Close(nil)
		b.release()
		return nil
	}

	b.state = StateFreeing
	b.pending++
	if err := b.poll.Close(b.onClosed); err != nil {
		b.logger.Warnf("failed to stop polling fd=%d: %v", b.fd, err)
	}
	return nil
}

func (b *Bridge) onClosed() {
	if b.pending--; b.pending == 0 {
		b.release()
	}
}

func (b *Bridge) release() {
	b.logger.Debugf("bridge on fd=%d freed after %d messages", b.fd, b.received)
	b.state = StateFreed
	b.loop, b.sock, b.poll = nil, nil, nil
	b.onRecv, b.userData = nil, nil
	b.fd = -1
}

// State returns the lifecycle state, StateFreed for a nil bridge.
func (b *Bridge) State() BridgeState {
	if b == nil {
		return StateFreed
	}
	return b.state
}

// Socket returns the bridged socket, nil for a nil or freed bridge.
func (b *Bridge) Socket() Socket {
	if b == nil {
		return nil
	}
	return b.sock
}

// Loop returns the loop of the bridge, nil for a nil or freed bridge.
func (b *Bridge) Loop() *reactor.Loop {
	if b == nil {
		return nil
	}
	return b.loop
}

// UserData returns the value given to Register, nil for a nil or freed bridge.
func (b *Bridge) UserData() any {
	if b == nil {
		return nil
	}
	return b.userData
}

// FD returns the signaling descriptor, -1 for a nil or freed bridge.
func (b *Bridge) FD() int {
	if b == nil {
		return -1
	}
	return b.fd
}

// Received returns the number of messages handed to the receive handler.
func (b *Bridge) Received() uint64 {
	if b == nil {
		return 0
	}
	return b.received
}

// Poll waits up to timeout, forever when negative, for events on the socket.
// It blocks the calling goroutine, the loop included.
func (b *Bridge) Poll(events zsock.Events, timeout time.Duration) (zsock.Events, error) {
	if b == nil || b.sock == nil {
		return 0, errors.ErrInvalidArgument
	}
	return b.sock.Poll(events, timeout)
}

func (b *Bridge) onReadable(_ *reactor.Poll, _ reactor.Event) {
	b.drain()
}

// drain receives until the socket would block, stops reporting input or MaxBatch
// messages have been delivered.
func (b *Bridge) drain() {
	if b.state != StateOpen {
		return
	}
	if b.onRecv == nil {
		// Consume the readiness edge, the messages stay queued on the socket.
		_ = b.hasInput()
		return
	}
	for n := 1; ; n++ {
		msg, err := b.sock.RecvMsg(zsock.DontWait)
		if err != nil {
			// ErrState: a Rep socket owes a reply or a Req socket has none outstanding,
			// nothing is receivable until the owner sends.
			if !isWouldBlock(err) {
				b.logger.Errorf("%v: receive on fd=%d: %v", errors.ErrTransientIO, b.fd, err)
			}
			return
		}
		b.received++
		b.onRecv(b, msg, b.userData)
		if b.state != StateOpen {
			return
		}
		if n >= b.opts.MaxBatch {
			// The signal was consumed, without a continuation the remaining
			// messages would wait for the next unrelated delivery.
			if b.hasInput() {
				b.resume()
			}
			return
		}
		if n%b.opts.RecheckInterval == 0 && !b.hasInput() {
			return
		}
	}
}

func isWouldBlock(err error) bool {
	return goerrors.Is(err, zsock.ErrAgain) || goerrors.Is(err, zsock.ErrInterrupted) ||
		goerrors.Is(err, zsock.ErrState)
}

func (b *Bridge) hasInput() bool {
	ev, err := b.sock.Events()
	if err != nil {
		b.logger.Errorf("%v: events of fd=%d: %v", errors.ErrTransientIO, b.fd, err)
		return false
	}
	return ev&zsock.PollIn != 0
}

func (b *Bridge) resume() {
	if b.resuming {
		return
	}
	b.resuming = true
	b.loop.Post(func() {
		b.resuming = false
		b.drain()
	})
}
