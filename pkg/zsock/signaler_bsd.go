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

//go:build darwin || dragonfly || freebsd

package zsock

import (
	"os"

	"golang.org/x/sys/unix"
)

// signaler is a non-blocking pipe, its read end is readable while a signal is pending.
type signaler struct {
	r, w int
	buf  []byte
}

func newSignaler() (*signaler, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, os.NewSyscallError("pipe", err)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(fds[0])
			_ = unix.Close(fds[1])
			return nil, os.NewSyscallError("fcntl nonblock", err)
		}
	}
	return &signaler{r: fds[0], w: fds[1], buf: make([]byte, 64)}, nil
}

func (s *signaler) signal() error {
	if _, err := unix.Write(s.w, []byte{1}); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("write", err)
	}
	return nil
}

func (s *signaler) drain() {
	for {
		if n, err := unix.Read(s.r, s.buf); n < len(s.buf) || err != nil {
			return
		}
	}
}

func (s *signaler) readFD() int {
	return s.r
}

func (s *signaler) close() error {
	err := unix.Close(s.r)
	if e := unix.Close(s.w); err == nil {
		err = e
	}
	return os.NewSyscallError("close", err)
}
