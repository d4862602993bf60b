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

package zsock

import "github.com/panjf2000/zmqloop/pkg/logging"

// DefaultIOThreads is the default number of context I/O workers.
const DefaultIOThreads = 1

// ContextOption is a function that will set up a context option.
type ContextOption func(opts *ContextOptions)

func loadContextOptions(options ...ContextOption) *ContextOptions {
	opts := &ContextOptions{IOThreads: DefaultIOThreads}
	for _, option := range options {
		option(opts)
	}
	if opts.IOThreads < 0 {
		opts.IOThreads = DefaultIOThreads
	}
	return opts
}

// ContextOptions are configurations of a Context.
type ContextOptions struct {
	// IOThreads is the number of background workers running the deferred commands
	// of the context, such as reaping closed sockets. With zero workers nothing runs
	// in the background and the owner must call Context.ProcessCommands.
	IOThreads int

	// Logger is the customized logger for logging info, if it is not set,
	// then the default logger of pkg/logging is used.
	Logger logging.Logger
}

// WithContextOptions sets up all options.
func WithContextOptions(options ContextOptions) ContextOption {
	return func(opts *ContextOptions) {
		*opts = options
	}
}

// WithIOThreads sets up the number of background command workers.
func WithIOThreads(n int) ContextOption {
	return func(opts *ContextOptions) {
		opts.IOThreads = n
	}
}

// WithContextLogger sets up a customized logger.
func WithContextLogger(logger logging.Logger) ContextOption {
	return func(opts *ContextOptions) {
		opts.Logger = logger
	}
}
