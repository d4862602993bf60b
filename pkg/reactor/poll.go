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
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/panjf2000/zmqloop/pkg/netpoll"
)

// Event is a set of readiness events.
type Event uint32

const (
	// Readable means the descriptor can be read without blocking.
	Readable Event = 1 << iota
	// Writable means the descriptor can be written without blocking.
	Writable
)

// PollCallback is invoked with the events that fired among the ones the handle watches.
type PollCallback func(p *Poll, events Event)

// Poll watches the readiness of a descriptor the loop doesn't own.
type Poll struct {
	handle
	fd         int
	events     Event
	cb         PollCallback
	pa         *netpoll.PollAttachment
	registered bool
}

// NewPoll creates a poll handle for fd, which must be an open descriptor.
func (l *Loop) NewPoll(fd int) (*Poll, error) {
	if l.closed {
		return nil, ErrLoopClosed
	}
	if fd < 0 {
		return nil, fmt.Errorf("%w: fd=%d", ErrBadDescriptor, fd)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return nil, fmt.Errorf("%w: fd=%d: %v", ErrBadDescriptor, fd, err)
	}
	p := &Poll{fd: fd}
	p.init(l, p.Stop)
	return p, nil
}

// FD returns the watched descriptor.
func (p *Poll) FD() int {
	return p.fd
}

// Events returns the events the handle watches, zero when stopped.
func (p *Poll) Events() Event {
	return p.events
}

// Start begins (or changes) watching events, cb replaces any previous callback.
func (p *Poll) Start(events Event, cb PollCallback) error {
	if p.closing {
		return ErrHandleClosing
	}
	if cb == nil {
		return ErrNilCallback
	}
	if events&(Readable|Writable) == 0 {
		return ErrInvalidEvents
	}
	if p.pa == nil {
		p.pa = netpoll.GetPollAttachment()
		p.pa.FD, p.pa.Callback = p.fd, p.dispatch
	}
	poller := p.loop.poller
	var err error
	switch {
	case !p.registered && events&Writable != 0 && events&Readable != 0:
		err = poller.AddReadWrite(p.pa)
	case !p.registered && events&Writable != 0:
		err = poller.AddWrite(p.pa)
	case !p.registered:
		err = poller.AddRead(p.pa)
	case events&Writable != 0:
		err = poller.ModReadWrite(p.pa)
	default:
		err = poller.ModRead(p.pa)
	}
	if err != nil {
		if !p.registered {
			netpoll.PutPollAttachment(p.pa)
			p.pa = nil
		}
		return err
	}
	p.registered, p.events, p.cb = true, events, cb
	p.setActive(true)
	return nil
}

// Stop synchronously stops watching the descriptor, the handle can be started again.
func (p *Poll) Stop() error {
	var err error
	if p.registered {
		err = p.loop.poller.Delete(p.fd)
		p.registered = false
	}
	if p.pa != nil {
		netpoll.PutPollAttachment(p.pa)
		p.pa = nil
	}
	p.events, p.cb = 0, nil
	p.setActive(false)
	return err
}

// Close stops the handle and runs cb, if not nil, once the loop has fully detached it,
// which happens in the closing phase of a loop iteration and never before Close returns.
func (p *Poll) Close(cb func()) error {
	return p.close(cb)
}

func (p *Poll) dispatch(_ int, ev netpoll.IOEvent, flags netpoll.IOFlags) error {
	if !p.active || p.cb == nil {
		return nil
	}
	var events Event
	if netpoll.IsReadEvent(ev) {
		events |= Readable
	}
	if netpoll.IsWriteEvent(ev) {
		events |= Writable
	}
	if netpoll.IsErrorEvent(ev, flags) {
		// Report errors and hang-ups as every watched event, the next
		// read or write surfaces the actual failure.
		events |= p.events
	}
	if events &= p.events; events != 0 {
		p.cb(p, events)
	}
	return nil
}
