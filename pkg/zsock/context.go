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

// Package zsock implements in-process message sockets in the manner of ZeroMQ's
// inproc transport: sockets of a Context bind and connect to inproc:// endpoints,
// exchange Message frames, and expose a signaling descriptor plus an Events query
// so that an external reactor can wait for them.
//
// The signaling descriptor is edge-triggered relative to messages: it becomes
// readable when a message is delivered and both Events and RecvMsg consume the
// signal, so after either call more messages may be pending while the descriptor
// is not readable. Consumers must drain until ErrAgain or re-check Events.
//
// Closing a socket only queues a reap command on its Context. The command runs on a
// Context I/O worker or, when the Context has no I/O threads, whenever the owner calls
// ProcessCommands; until then the endpoints of the socket stay in use.
package zsock

import (
	"strings"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/panjf2000/zmqloop/pkg/logging"
	"github.com/panjf2000/zmqloop/pkg/pool/goroutine"
)

const inprocScheme = "inproc://"

// Context owns sockets and the endpoints they bind.
type Context struct {
	opts    *ContextOptions
	logger  logging.Logger
	workers *goroutine.Pool

	mu         sync.Mutex
	endpoints  map[string]*Socket
	sockets    map[*Socket]struct{}
	commands   []*Socket // closed sockets waiting to be reaped
	terminated bool
}

// NewContext creates a context.
func NewContext(opts ...ContextOption) (*Context, error) {
	options := loadContextOptions(opts...)
	c := &Context{
		opts:      options,
		logger:    logging.OrDefault(options.Logger),
		endpoints: make(map[string]*Socket),
		sockets:   make(map[*Socket]struct{}),
	}
	if options.IOThreads > 0 {
		workers, err := goroutine.New(options.IOThreads, c.logger)
		if err != nil {
			return nil, err
		}
		c.workers = workers
	}
	return c, nil
}

// IOThreads returns the number of background command workers.
func (c *Context) IOThreads() int {
	return c.opts.IOThreads
}

// NewSocket creates a socket of the given type.
func (c *Context) NewSocket(t Type) (*Socket, error) {
	if !t.valid() {
		return nil, ErrNotSupported
	}
	sig, err := newSignaler()
	if err != nil {
		return nil, err
	}
	s := &Socket{
		ctx:        c,
		typ:        t,
		sig:        sig,
		inbox:      queue.New(),
		rcvTimeout: -1,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		_ = sig.close()
		return nil, ErrTerminated
	}
	c.sockets[s] = struct{}{}
	return s, nil
}

// Pending returns the number of closed sockets that haven't been reaped yet.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

// ProcessCommands runs the queued commands and returns the number of sockets it reaped.
// It is safe to call from any goroutine.
func (c *Context) ProcessCommands() int {
	c.mu.Lock()
	commands := c.commands
	c.commands = nil
	c.mu.Unlock()

	var reaped int
	for _, s := range commands {
		if !s.reap() {
			// A receiver is still blocked on the socket, retry on the next round.
			c.mu.Lock()
			c.commands = append(c.commands, s)
			c.mu.Unlock()
			continue
		}
		c.mu.Lock()
		for _, ep := range s.endpoints {
			if c.endpoints[ep] == s {
				delete(c.endpoints, ep)
			}
		}
		delete(c.sockets, s)
		c.mu.Unlock()
		reaped++
	}
	return reaped
}

// Term closes every socket of the context, waits until all of them are reaped and
// releases the I/O workers.
func (c *Context) Term() error {
	c.mu.Lock()
	if c.terminated {
		c.mu.Unlock()
		return ErrTerminated
	}
	c.terminated = true
	sockets := make([]*Socket, 0, len(c.sockets))
	for s := range c.sockets {
		sockets = append(sockets, s)
	}
	c.mu.Unlock()

	for _, s := range sockets {
		_ = s.Close()
	}
	for c.ProcessCommands(); c.Pending() > 0; c.ProcessCommands() {
		time.Sleep(time.Millisecond)
	}
	if c.workers != nil {
		c.workers.Release()
	}
	return nil
}

func (c *Context) post(s *Socket) {
	c.mu.Lock()
	c.commands = append(c.commands, s)
	terminated := c.terminated
	c.mu.Unlock()

	if c.workers == nil || terminated {
		return
	}
	if err := c.workers.Submit(func() { c.ProcessCommands() }); err != nil {
		c.logger.Warnf("failed to schedule the reaping of a %s socket: %v", s.typ, err)
	}
}

func parseEndpoint(endpoint string) (string, error) {
	name := strings.TrimPrefix(endpoint, inprocScheme)
	if name == endpoint || name == "" {
		return "", ErrInvalidEndpoint
	}
	return name, nil
}

func (c *Context) bind(endpoint string, s *Socket) error {
	name, err := parseEndpoint(endpoint)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return ErrTerminated
	}
	if s.isClosed() {
		return ErrSocketClosed
	}
	if _, ok := c.endpoints[name]; ok {
		return ErrAddrInUse
	}
	c.endpoints[name] = s
	s.endpoints = append(s.endpoints, name)
	return nil
}

func (c *Context) lookup(endpoint string) (*Socket, error) {
	name, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminated {
		return nil, ErrTerminated
	}
	s, ok := c.endpoints[name]
	if !ok {
		return nil, ErrConnRefused
	}
	return s, nil
}
