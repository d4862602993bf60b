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

import (
	"os"

	"golang.org/x/sys/unix"
)

// signaler is an eventfd, readable while a signal is pending.
type signaler struct {
	fd  int
	buf []byte
}

var signalBytes = []byte{1, 0, 0, 0, 0, 0, 0, 0}

func newSignaler() (*signaler, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("eventfd", err)
	}
	return &signaler{fd: fd, buf: make([]byte, 8)}, nil
}

func (s *signaler) signal() error {
	if _, err := unix.Write(s.fd, signalBytes); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("write", err)
	}
	return nil
}

func (s *signaler) drain() {
	_, _ = unix.Read(s.fd, s.buf)
}

func (s *signaler) readFD() int {
	return s.fd
}

func (s *signaler) close() error {
	return os.NewSyscallError("close", unix.Close(s.fd))
}
