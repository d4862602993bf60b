// Copyright (c) 2019 The Gnet Authors. All rights reserved.
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

// Package errors defines common errors for zmqloop.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument occurs when a required argument is nil, or when a bridge
	// or a reaper is used after it has been released.
	ErrInvalidArgument = errors.New("zmqloop: invalid argument")
	// ErrAlreadyClosed occurs when closing a bridge more than once.
	ErrAlreadyClosed = fmt.Errorf("%w: bridge is already closed", ErrInvalidArgument)
	// ErrResourceUnavailable occurs when a resource the bridge needs can not be obtained.
	ErrResourceUnavailable = errors.New("zmqloop: resource unavailable")
	// ErrDescriptorUnavailable occurs when the signaling descriptor of a socket can not be queried.
	ErrDescriptorUnavailable = fmt.Errorf("%w: signaling descriptor unavailable", ErrResourceUnavailable)
	// ErrRegistrationFailed occurs when the reactor refuses to poll the signaling descriptor.
	ErrRegistrationFailed = errors.New("zmqloop: reactor registration failed")
	// ErrTransientIO occurs when a non-blocking receive fails for a reason other than
	// would-block or interruption, it is only ever logged.
	ErrTransientIO = errors.New("zmqloop: transient I/O error")
)

// Status codes returned by Code, 0 means success and any negative value an error.
const (
	CodeOK                  = 0
	CodeInvalidArgument     = -1
	CodeAlreadyClosed       = -2
	CodeResourceUnavailable = -3
	CodeRegistrationFailed  = -4
	CodeTransientIO         = -5
	CodeUnknown             = -100
)

// Code maps err to its integer status code.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrAlreadyClosed):
		return CodeAlreadyClosed
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument
	case errors.Is(err, ErrResourceUnavailable):
		return CodeResourceUnavailable
	case errors.Is(err, ErrRegistrationFailed):
		return CodeRegistrationFailed
	case errors.Is(err, ErrTransientIO):
		return CodeTransientIO
	default:
		return CodeUnknown
	}
}

// StrError renders a status code for diagnostics.
func StrError(code int) string {
	switch code {
	case CodeOK:
		return "success"
	case CodeInvalidArgument:
		return "invalid argument"
	case CodeAlreadyClosed:
		return "already closed"
	case CodeResourceUnavailable:
		return "resource unavailable"
	case CodeRegistrationFailed:
		return "registration failed"
	case CodeTransientIO:
		return "transient I/O error"
	default:
		return "unknown error"
	}
}
