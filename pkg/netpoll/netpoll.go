// Copyright (c) 2025 The Gnet Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build darwin || dragonfly || freebsd || linux

/*
Package netpoll provides the portable readiness poller underneath the reactor loop.

The underlying facility of event notification is OS-specific:
  - epoll on Linux - https://man7.org/linux/man-pages/man7/epoll.7.html
  - kqueue on *BSD/Darwin - https://man.freebsd.org/cgi/man.cgi?kqueue

Unlike a network engine, the poller never owns the descriptors registered with it:
they usually belong to a foreign library (a message socket's signaling descriptor,
for instance), so Delete always removes the registration explicitly instead of
relying on close(2) to do it.

A PollAttachment pairs a descriptor with its callback:

	pa := netpoll.GetPollAttachment()
	pa.FD, pa.Callback = fd, func(fd int, event netpoll.IOEvent, flags netpoll.IOFlags) error {
		if netpoll.IsReadEvent(event) {
			// drain the descriptor...
		}
		return nil
	}
	if err := poller.AddRead(pa); err != nil {
		// handle error
	}

Poller.Poll waits once for events, dispatches them to the attachments and then runs
the tasks other goroutines queued through Trigger and UrgentTrigger:

	for {
		if _, err := poller.Poll(-1); err != nil {
			// handle error
		}
	}
*/
package netpoll
