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

//go:build darwin || dragonfly || freebsd || linux

package netpoll

import (
	"errors"
	"sync"
)

var (
	// ErrAlreadyRegistered occurs when adding a descriptor the poller already watches.
	ErrAlreadyRegistered = errors.New("netpoll: file descriptor already registered")
	// ErrNotRegistered occurs when modifying or deleting a descriptor the poller doesn't watch.
	ErrNotRegistered = errors.New("netpoll: file descriptor not registered")
	// ErrInvalidAttachment occurs when an attachment has a negative descriptor or no callback.
	ErrInvalidAttachment = errors.New("netpoll: invalid poll attachment")
)

// PollEventHandler is the callback for I/O events notified by the poller.
type PollEventHandler func(fd int, event IOEvent, flags IOFlags) error

// PollAttachment is the user data attached to a descriptor registered with the poller.
type PollAttachment struct {
	FD       int
	Callback PollEventHandler
}

var pollAttachmentPool = sync.Pool{New: func() any { return new(PollAttachment) }}

// GetPollAttachment attempts to get a cached PollAttachment from pool.
func GetPollAttachment() *PollAttachment {
	return pollAttachmentPool.Get().(*PollAttachment)
}

// PutPollAttachment put an unused PollAttachment back to pool.
func PutPollAttachment(pa *PollAttachment) {
	if pa == nil {
		return
	}
	pa.FD, pa.Callback = 0, nil
	pollAttachmentPool.Put(pa)
}

func validAttachment(pa *PollAttachment) bool {
	return pa != nil && pa.FD >= 0 && pa.Callback != nil
}
