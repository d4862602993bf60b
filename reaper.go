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
	"fmt"
	"time"

	"github.com/panjf2000/zmqloop/pkg/errors"
	"github.com/panjf2000/zmqloop/pkg/logging"
	"github.com/panjf2000/zmqloop/pkg/reactor"
	"github.com/panjf2000/zmqloop/pkg/zsock"
)

// DefaultReaperInterval is the default period of a Reaper.
const DefaultReaperInterval = 10 * time.Millisecond

// ReaperOption is a function that will set up a reaper option.
type ReaperOption func(opts *ReaperOptions)

func loadReaperOptions(options ...ReaperOption) *ReaperOptions {
	opts := &ReaperOptions{Interval: DefaultReaperInterval}
	for _, option := range options {
		option(opts)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultReaperInterval
	}
	return opts
}

// ReaperOptions are configurations for a Reaper.
type ReaperOptions struct {
	// Interval is the period between two runs of the context commands.
	Interval time.Duration

	// Logger is the customized logger for logging info, if it is not set,
	// then the default logger of pkg/logging is used.
	Logger logging.Logger
}

// WithReaperInterval sets up the period of the reaper.
func WithReaperInterval(interval time.Duration) ReaperOption {
	return func(opts *ReaperOptions) {
		opts.Interval = interval
	}
}

// WithReaperLogger sets up a customized logger.
func WithReaperLogger(logger logging.Logger) ReaperOption {
	return func(opts *ReaperOptions) {
		opts.Logger = logger
	}
}

type reaperKey struct{}

// Reaper periodically runs the deferred commands of a messaging context on a loop,
// standing in for the context I/O threads when there are none. Its timer doesn't keep
// the loop alive.
type Reaper struct {
	loop    *reactor.Loop
	ctx     *zsock.Context
	timer   *reactor.Timer
	opts    *ReaperOptions
	logger  logging.Logger
	reaped  int
	stopped bool
}

// StartReaper starts a reaper for ctx on loop. A loop runs one reaper at most: starting
// it again for the same ctx returns the running reaper, for another ctx it fails with
// ErrInvalidArgument.
func StartReaper(loop *reactor.Loop, ctx *zsock.Context, opts ...ReaperOption) (*Reaper, error) {
	if loop == nil || ctx == nil {
		return nil, errors.ErrInvalidArgument
	}
	if v, ok := loop.Value(reaperKey{}); ok {
		if r := v.(*Reaper); r.ctx == ctx {
			return r, nil
		}
		return nil, fmt.Errorf("%w: loop already reaps another context", errors.ErrInvalidArgument)
	}

	options := loadReaperOptions(opts...)
	timer, err := loop.NewTimer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrResourceUnavailable, err)
	}
	timer.Unref()
	r := &Reaper{
		loop:   loop,
		ctx:    ctx,
		timer:  timer,
		opts:   options,
		logger: logging.OrDefault(options.Logger),
	}
	if err = timer.Start(r.tick, options.Interval, options.Interval); err != nil {
		_ = timer.Close(nil)
		return nil, fmt.Errorf("%w: %w", errors.ErrResourceUnavailable, err)
	}
	loop.SetValue(reaperKey{}, r)
	r.logger.Debugf("reaper started with interval %s", options.Interval)
	return r, nil
}

// StopReaper stops the reaper running on loop.
func StopReaper(loop *reactor.Loop) error {
	if loop == nil {
		return errors.ErrInvalidArgument
	}
	v, ok := loop.Value(reaperKey{})
	if !ok {
		return errors.ErrInvalidArgument
	}
	return v.(*Reaper).Stop()
}

// Stop stops the reaper, its timer is closed in the closing phase of the next loop iteration.
func (r *Reaper) Stop() error {
	if r == nil || r.stopped {
		return errors.ErrInvalidArgument
	}
	r.stopped = true
	if v, ok := r.loop.Value(reaperKey{}); ok && v == r {
		r.loop.DeleteValue(reaperKey{})
	}
	r.logger.Debugf("reaper stopped after reaping %d sockets", r.reaped)
	return r.timer.Close(nil)
}

// Interval returns the period of the reaper.
func (r *Reaper) Interval() time.Duration {
	return r.opts.Interval
}

// Reaped returns the number of sockets the reaper reaped so far.
func (r *Reaper) Reaped() int {
	return r.reaped
}

func (r *Reaper) tick(_ *reactor.Timer) {
	if n := r.ctx.ProcessCommands(); n > 0 {
		r.reaped += n
		r.logger.Debugf("reaper reaped %d sockets", n)
	}
}
