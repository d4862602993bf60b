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

package zsock

import (
	"bytes"
	"os"
	"sync"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// Type is the messaging pattern of a socket.
type Type int

// Socket types, numbered as in ZeroMQ.
const (
	Pair Type = 0
	Pub  Type = 1
	Sub  Type = 2
	Req  Type = 3
	Rep  Type = 4
	Pull Type = 7
	Push Type = 8
)

func (t Type) valid() bool {
	switch t {
	case Pair, Pub, Sub, Req, Rep, Pull, Push:
		return true
	}
	return false
}

// String returns the name of the socket type.
func (t Type) String() string {
	switch t {
	case Pair:
		return "PAIR"
	case Pub:
		return "PUB"
	case Sub:
		return "SUB"
	case Req:
		return "REQ"
	case Rep:
		return "REP"
	case Pull:
		return "PULL"
	case Push:
		return "PUSH"
	default:
		return "UNKNOWN"
	}
}

// peerOf reports whether sockets of types t and u can be connected.
func (t Type) peerOf(u Type) bool {
	switch t {
	case Pair:
		return u == Pair
	case Pub:
		return u == Sub
	case Sub:
		return u == Pub
	case Req:
		return u == Rep
	case Rep:
		return u == Req
	case Pull:
		return u == Push
	case Push:
		return u == Pull
	}
	return false
}

func (t Type) canSend() bool {
	return t != Sub && t != Pull
}

func (t Type) canRecv() bool {
	return t != Pub && t != Push
}

// Events is a set of socket readiness events.
type Events uint32

const (
	// PollIn means at least one message can be received without blocking.
	PollIn Events = 1
	// PollOut means at least one message can be sent without blocking.
	PollOut Events = 2
)

// Flag modifies send and receive operations.
type Flag int

// DontWait makes a receive fail with ErrAgain instead of blocking.
const DontWait Flag = 1

type envelope struct {
	msg  *Message
	from *Socket
}

// Socket is an in-process message socket. Its methods are safe for concurrent use.
type Socket struct {
	ctx *Context
	typ Type
	sig *signaler

	mu         sync.Mutex
	inbox      *queue.Queue
	signaled   bool // a delivery happened since the last Events or RecvMsg
	peers      []*Socket
	next       int // round-robin cursor over peers
	subs       [][]byte
	awaiting   bool    // Req: a reply is due. Rep: a request was received and not answered yet.
	replyTo    *Socket // Rep: the requester of the current request
	rcvTimeout time.Duration
	waiters    int
	closed     bool

	endpoints []string // guarded by ctx.mu
}

// Type returns the type of the socket.
func (s *Socket) Type() Type {
	return s.typ
}

// Context returns the context that created the socket.
func (s *Socket) Context() *Context {
	return s.ctx
}

// FD returns the signaling descriptor. The caller must not read from it, close it or
// use it for anything but waiting for readability.
func (s *Socket) FD() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1, ErrSocketClosed
	}
	return s.sig.readFD(), nil
}

// SetRcvTimeout bounds how long a blocking receive waits, negative means forever.
func (s *Socket) SetRcvTimeout(d time.Duration) {
	s.mu.Lock()
	s.rcvTimeout = d
	s.mu.Unlock()
}

// RcvTimeout returns the receive timeout.
func (s *Socket) RcvTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rcvTimeout
}

// SetSubscribe adds a topic prefix filter to a Sub socket, an empty prefix matches everything.
func (s *Socket) SetSubscribe(prefix []byte) error {
	if s.typ != Sub {
		return ErrNotSupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	s.subs = append(s.subs, append([]byte(nil), prefix...))
	return nil
}

// SetUnsubscribe removes one topic prefix filter previously added with SetSubscribe.
func (s *Socket) SetUnsubscribe(prefix []byte) error {
	if s.typ != Sub {
		return ErrNotSupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSocketClosed
	}
	for i, sub := range s.subs {
		if bytes.Equal(sub, prefix) {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	return nil
}

// Bind makes the socket own an inproc:// endpoint.
func (s *Socket) Bind(endpoint string) error {
	return s.ctx.bind(endpoint, s)
}

// Connect links the socket to the socket bound to an inproc:// endpoint.
func (s *Socket) Connect(endpoint string) error {
	if s.isClosed() {
		return ErrSocketClosed
	}
	binder, err := s.ctx.lookup(endpoint)
	if err != nil {
		return err
	}
	if binder == s || !s.typ.peerOf(binder.typ) {
		return ErrNotSupported
	}
	if s.typ == Pair && (s.peerCount() > 0 || binder.peerCount() > 0) {
		return ErrAddrInUse
	}
	if !binder.attach(s) {
		return ErrConnRefused
	}
	if !s.attach(binder) {
		binder.detach(s)
		return ErrSocketClosed
	}
	return nil
}

// Send sends a copy of data.
func (s *Socket) Send(data []byte, flags Flag) error {
	msg := NewMessage(data)
	err := s.SendMsg(msg, flags)
	_ = msg.Close()
	return err
}

// SendMsg moves msg to the peer chosen by the socket pattern, msg is empty afterwards.
// Sending never blocks: a socket without a peer to route to fails with ErrAgain and
// leaves msg untouched. A Pub socket drops messages no subscriber matches.
func (s *Socket) SendMsg(msg *Message, _ Flag) error {
	if msg.Closed() {
		return ErrMessageClosed
	}
	if !s.typ.canSend() {
		return ErrNotSupported
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	switch s.typ {
	case Pub:
		peers := append([]*Socket(nil), s.peers...)
		s.mu.Unlock()
		for _, p := range peers {
			if c := msg.clone(); !p.deliver(c, s) {
				_ = c.Close()
			}
		}
		return msg.Close()
	case Rep:
		if !s.awaiting {
			s.mu.Unlock()
			return ErrState
		}
		to := s.replyTo
		s.awaiting, s.replyTo = false, nil
		if s.inbox.Length() > 0 {
			// Requests that arrived while the reply was pending are readable now.
			s.raiseSignal()
		}
		s.mu.Unlock()
		if moved := msg.take(); to == nil || !to.deliver(moved, s) {
			// The requester is gone, the reply is dropped.
			_ = moved.Close()
		}
		return nil
	case Req:
		if s.awaiting {
			s.mu.Unlock()
			return ErrState
		}
	}
	peers := append([]*Socket(nil), s.peers...)
	start := s.next
	s.mu.Unlock()

	for i := range peers {
		n := (start + i) % len(peers)
		moved := msg.take()
		if peers[n].deliver(moved, s) {
			s.mu.Lock()
			s.next = n + 1
			if s.typ == Req {
				s.awaiting = true
			}
			s.mu.Unlock()
			return nil
		}
		msg.buf = moved.buf
	}
	return ErrAgain
}

// Recv receives a message and returns a copy of its payload.
func (s *Socket) Recv(flags Flag) ([]byte, error) {
	msg, err := s.RecvMsg(flags)
	if err != nil {
		return nil, err
	}
	data := append([]byte(nil), msg.Bytes()...)
	_ = msg.Close()
	return data, nil
}

// RecvMsg receives the next message, the caller owns it. With DontWait it fails with
// ErrAgain when nothing is queued, otherwise it waits up to the receive timeout.
func (s *Socket) RecvMsg(flags Flag) (*Message, error) {
	if !s.typ.canRecv() {
		return nil, ErrNotSupported
	}

	var deadline time.Time
	s.mu.Lock()
	if s.rcvTimeout >= 0 {
		deadline = time.Now().Add(s.rcvTimeout)
	}
	for {
		if s.closed {
			s.mu.Unlock()
			return nil, ErrSocketClosed
		}
		s.consumeSignal()
		if (s.typ == Req && !s.awaiting) || (s.typ == Rep && s.awaiting) {
			s.mu.Unlock()
			return nil, ErrState
		}
		if s.inbox.Length() > 0 {
			env := s.inbox.Remove().(envelope)
			switch s.typ {
			case Req:
				s.awaiting = false
			case Rep:
				s.awaiting, s.replyTo = true, env.from
			}
			s.mu.Unlock()
			return env.msg, nil
		}
		if flags&DontWait != 0 {
			s.mu.Unlock()
			return nil, ErrAgain
		}

		timeout := time.Duration(-1)
		if !deadline.IsZero() {
			if timeout = time.Until(deadline); timeout <= 0 {
				s.mu.Unlock()
				return nil, ErrAgain
			}
		}
		if err := s.wait(timeout); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
}

// Events reports the readiness of the socket and consumes a pending signal.
func (s *Socket) Events() (Events, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSocketClosed
	}
	s.consumeSignal()
	return s.events(), nil
}

// Poll waits up to timeout, forever when negative, until one of events is reported
// and returns the reported subset, zero on timeout.
func (s *Socket) Poll(events Events, timeout time.Duration) (Events, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.closed {
			return 0, ErrSocketClosed
		}
		s.consumeSignal()
		if ev := s.events() & events; ev != 0 {
			return ev, nil
		}
		wait := time.Duration(-1)
		if !deadline.IsZero() {
			if wait = time.Until(deadline); wait <= 0 {
				return 0, nil
			}
		}
		if err := s.wait(wait); err != nil {
			return 0, err
		}
	}
}

// Close closes the socket and queues it for reaping. Its endpoints are released,
// its queued messages dropped and its descriptor closed when the reap command runs.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSocketClosed
	}
	s.closed = true
	if s.waiters > 0 {
		_ = s.sig.signal()
	}
	s.mu.Unlock()
	s.ctx.post(s)
	return nil
}

// events must be called with s.mu held.
func (s *Socket) events() (ev Events) {
	if s.typ.canRecv() && s.inbox.Length() > 0 && !(s.typ == Req && !s.awaiting) && !(s.typ == Rep && s.awaiting) {
		ev |= PollIn
	}
	switch s.typ {
	case Pub:
		ev |= PollOut
	case Rep:
		if s.awaiting {
			ev |= PollOut
		}
	case Req:
		if !s.awaiting && len(s.peers) > 0 {
			ev |= PollOut
		}
	case Pair, Push:
		if len(s.peers) > 0 {
			ev |= PollOut
		}
	}
	return
}

// consumeSignal must be called with s.mu held.
func (s *Socket) consumeSignal() {
	if s.signaled {
		s.sig.drain()
		s.signaled = false
	}
}

// wait releases s.mu while waiting for the signaling descriptor to become readable.
func (s *Socket) wait(timeout time.Duration) error {
	s.waiters++
	s.mu.Unlock()
	err := waitReadable(s.sig.readFD(), timeout)
	s.mu.Lock()
	s.waiters--
	return err
}

func waitReadable(fd int, timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		msec := -1
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			msec = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}
		_, err := unix.Poll(fds, msec)
		if err == unix.EINTR {
			continue
		}
		return os.NewSyscallError("poll", err)
	}
}

func (s *Socket) deliver(msg *Message, from *Socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.typ == Sub && !s.subscribed(msg.Bytes())) {
		return false
	}
	s.inbox.Add(envelope{msg: msg, from: from})
	s.raiseSignal()
	return true
}

// raiseSignal must be called with s.mu held.
func (s *Socket) raiseSignal() {
	if s.signaled {
		return
	}
	s.signaled = true
	if err := s.sig.signal(); err != nil {
		s.ctx.logger.Errorf("failed to signal a %s socket: %v", s.typ, err)
	}
}

// subscribed must be called with s.mu held.
func (s *Socket) subscribed(data []byte) bool {
	for _, sub := range s.subs {
		if bytes.HasPrefix(data, sub) {
			return true
		}
	}
	return false
}

func (s *Socket) attach(peer *Socket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.peers = append(s.peers, peer)
	return true
}

func (s *Socket) detach(peer *Socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.peers {
		if p == peer {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			break
		}
	}
	if s.replyTo == peer {
		s.replyTo = nil
	}
}

func (s *Socket) peerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// reap releases the resources of a closed socket, it fails while a receiver is still blocked on it.
func (s *Socket) reap() bool {
	s.mu.Lock()
	if s.waiters > 0 {
		s.mu.Unlock()
		return false
	}
	peers := s.peers
	s.peers, s.replyTo = nil, nil
	for s.inbox.Length() > 0 {
		_ = s.inbox.Remove().(envelope).msg.Close()
	}
	if err := s.sig.close(); err != nil {
		s.ctx.logger.Warnf("failed to close the signaling descriptor of a %s socket: %v", s.typ, err)
	}
	s.mu.Unlock()

	for _, p := range peers {
		p.detach(s)
	}
	return true
}
