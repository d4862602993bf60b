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

//go:build darwin || dragonfly || freebsd

package netpoll

import "golang.org/x/sys/unix"

// IOFlags are the kevent flags, they carry EV_EOF and EV_ERROR.
type IOFlags = uint16

// IOEvent is a kevent filter.
type IOEvent = int16

const (
	// pollEventsCap bounds the events taken from one kevent call, the rest stay
	// pending until the next Poll.
	pollEventsCap = 64
	// MaxTasksPerWakeup is the number of low priority tasks run per wake-up.
	MaxTasksPerWakeup = 128

	// ReadEvents is the filter of a readable descriptor.
	ReadEvents = unix.EVFILT_READ
	// WriteEvents is the filter of a writable descriptor.
	WriteEvents = unix.EVFILT_WRITE
	// ErrEvents are the flags reporting an error or end of file.
	ErrEvents = unix.EV_EOF | unix.EV_ERROR
)

// IsReadEvent reports whether event is the read filter.
func IsReadEvent(event IOEvent) bool {
	return event == ReadEvents
}

// IsWriteEvent reports whether event is the write filter.
func IsWriteEvent(event IOEvent) bool {
	return event == WriteEvents
}

// IsErrorEvent reports an error or end of file through the kevent flags.
func IsErrorEvent(_ IOEvent, flags IOFlags) bool {
	return flags&ErrEvents != 0
}
