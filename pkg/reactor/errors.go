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

package reactor

import "errors"

var (
	// ErrLoopClosed occurs when using a loop after Close.
	ErrLoopClosed = errors.New("reactor: loop is closed")
	// ErrLoopRunning occurs when calling Run re-entrantly, or Close while the loop runs.
	ErrLoopRunning = errors.New("reactor: loop is running")
	// ErrLoopBusy occurs when closing a loop that still has open handles.
	ErrLoopBusy = errors.New("reactor: loop has open handles")
	// ErrHandleClosing occurs when starting or closing a handle that is already being closed.
	ErrHandleClosing = errors.New("reactor: handle is closing")
	// ErrNilCallback occurs when starting a handle without a callback.
	ErrNilCallback = errors.New("reactor: nil callback is not allowed")
	// ErrBadDescriptor occurs when polling a descriptor that isn't open.
	ErrBadDescriptor = errors.New("reactor: bad file descriptor")
	// ErrInvalidEvents occurs when starting a poll handle without any event of interest.
	ErrInvalidEvents = errors.New("reactor: no poll events requested")
)
