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

import "errors"

var (
	// ErrAgain occurs when a non-blocking operation would block, or a blocking one timed out.
	ErrAgain = errors.New("zsock: resource temporarily unavailable")
	// ErrInterrupted occurs when a blocking operation is interrupted before it completed.
	ErrInterrupted = errors.New("zsock: operation interrupted")
	// ErrState occurs when an operation is not allowed in the current state of a Req or Rep socket.
	ErrState = errors.New("zsock: operation cannot be accomplished in current state")
	// ErrNotSupported occurs when an operation is not supported by the socket type.
	ErrNotSupported = errors.New("zsock: operation not supported by socket type")
	// ErrSocketClosed occurs when using a socket after Close.
	ErrSocketClosed = errors.New("zsock: socket is closed")
	// ErrTerminated occurs when using a context, or a socket of it, after Term.
	ErrTerminated = errors.New("zsock: context was terminated")
	// ErrInvalidEndpoint occurs when an endpoint is not of the form inproc://name.
	ErrInvalidEndpoint = errors.New("zsock: invalid endpoint")
	// ErrAddrInUse occurs when binding an endpoint that is bound, or whose last owner hasn't been reaped yet.
	ErrAddrInUse = errors.New("zsock: address already in use")
	// ErrConnRefused occurs when connecting to an endpoint nobody is bound to.
	ErrConnRefused = errors.New("zsock: connection refused")
	// ErrMessageClosed occurs when sending a message that was already closed or moved.
	ErrMessageClosed = errors.New("zsock: message is closed")
)
