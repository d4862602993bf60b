// Copyright (c) 2021 The Gnet Authors. All rights reserved.
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

//go:build linux

package netpoll

import "golang.org/x/sys/unix"

// IOFlags is unused by epoll, error conditions are part of the event mask.
type IOFlags = uint16

// IOEvent is an epoll event mask.
type IOEvent = uint32

const (
	// pollEventsCap bounds the events taken from one epoll_wait, the rest stay
	// pending until the next Poll.
	pollEventsCap = 128
	// MaxTasksPerWakeup is the number of low priority tasks run per wake-up.
	MaxTasksPerWakeup = 256

	// ReadEvents are the epoll events of a readable descriptor.
	ReadEvents = unix.EPOLLIN | unix.EPOLLPRI
	// WriteEvents are the epoll events of a writable descriptor.
	WriteEvents = unix.EPOLLOUT
	// ReadWriteEvents watches both directions.
	ReadWriteEvents = ReadEvents | WriteEvents
	// ErrEvents report an error or hang-up on the descriptor.
	ErrEvents = unix.EPOLLERR | unix.EPOLLHUP
)

// IsReadEvent reports whether event carries read readiness.
func IsReadEvent(event IOEvent) bool {
	return event&ReadEvents != 0
}

// IsWriteEvent reports whether event carries write readiness.
func IsWriteEvent(event IOEvent) bool {
	return event&WriteEvents != 0
}

// IsErrorEvent reports an error or hang-up.
func IsErrorEvent(event IOEvent, _ IOFlags) bool {
	return event&ErrEvents != 0
}
