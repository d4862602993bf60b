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

package zmqloop

import "github.com/panjf2000/zmqloop/pkg/logging"

const (
	// DefaultMaxBatch is the number of messages a single readiness event drains at most.
	DefaultMaxBatch = 1000

	// DefaultRecheckInterval is the number of messages between two socket event re-checks during a drain.
	DefaultRecheckInterval = 50
)

// Option is a function that will set up option.
type Option func(opts *Options)

func loadOptions(options ...Option) *Options {
	opts := &Options{
		MaxBatch:        DefaultMaxBatch,
		RecheckInterval: DefaultRecheckInterval,
	}
	for _, option := range options {
		option(opts)
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = DefaultMaxBatch
	}
	if opts.RecheckInterval <= 0 {
		opts.RecheckInterval = DefaultRecheckInterval
	}
	return opts
}

// Options are configurations for a Bridge.
type Options struct {
	// MaxBatch caps the messages delivered per readiness event, the rest is drained
	// on the next loop iteration so that other handles get their turn.
	MaxBatch int

	// RecheckInterval is how many messages are received between two queries of the
	// socket events, the drain stops early once the socket stops reporting input.
	RecheckInterval int

	// SyncClose selects how Free releases the bridge. When false, the poll handle is
	// closed through the reactor and the bridge is released by the close completion on
	// a later loop iteration. When true, polling stops and the bridge is released
	// before Free returns.
	SyncClose bool

	// Logger is the customized logger for logging info, if it is not set,
	// then the default logger of pkg/logging is used.
	Logger logging.Logger
}

// WithOptions sets up all options. Zero fields keep their defaults.
func WithOptions(options Options) Option {
	return func(opts *Options) {
		*opts = options
	}
}

// WithMaxBatch sets up the maximum number of messages drained per readiness event.
func WithMaxBatch(n int) Option {
	return func(opts *Options) {
		opts.MaxBatch = n
	}
}

// WithRecheckInterval sets up the number of messages between two socket event re-checks.
func WithRecheckInterval(n int) Option {
	return func(opts *Options) {
		opts.RecheckInterval = n
	}
}

// WithSyncClose makes Free release the bridge before it returns.
func WithSyncClose(sync bool) Option {
	return func(opts *Options) {
		opts.SyncClose = sync
	}
}

// WithLogger sets up a customized logger.
func WithLogger(logger logging.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}
