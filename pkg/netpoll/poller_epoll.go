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

//go:build linux

package netpoll

import (
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/panjf2000/zmqloop/pkg/logging"
	"github.com/panjf2000/zmqloop/pkg/queue"
)

// Poller represents a poller which is in charge of monitoring file-descriptors.
//
// All methods except Trigger and UrgentTrigger must be called from the goroutine
// that calls Poll.
type Poller struct {
	fd                   int    // epoll fd
	efd                  int    // eventfd
	efdBuf               []byte // efd buffer to read an 8-byte integer
	wakeupCall           int32
	events               []unix.EpollEvent
	attachments          map[int]*PollAttachment
	asyncTaskQueue       queue.AsyncTaskQueue // queue with low priority
	urgentAsyncTaskQueue queue.AsyncTaskQueue // queue with high priority
	logger               logging.Logger
}

// OpenPoller instantiates a poller, a nil logger selects the default one.
func OpenPoller(logger logging.Logger) (poller *Poller, err error) {
	poller = new(Poller)
	if poller.fd, err = unix.EpollCreate1(unix.EPOLL_CLOEXEC); err != nil {
		poller = nil
		err = os.NewSyscallError("epoll_create1", err)
		return
	}
	if poller.efd, err = unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC); err != nil {
		_ = unix.Close(poller.fd)
		poller = nil
		err = os.NewSyscallError("eventfd", err)
		return
	}
	if err = unix.EpollCtl(poller.fd, unix.EPOLL_CTL_ADD, poller.efd,
		&unix.EpollEvent{Fd: int32(poller.efd), Events: ReadEvents}); err != nil {
		_ = unix.Close(poller.efd)
		_ = unix.Close(poller.fd)
		poller = nil
		err = os.NewSyscallError("epoll_ctl add", err)
		return
	}
	poller.efdBuf = make([]byte, 8)
	poller.events = make([]unix.EpollEvent, pollEventsCap)
	poller.attachments = make(map[int]*PollAttachment)
	poller.asyncTaskQueue = queue.NewLockFreeQueue()
	poller.urgentAsyncTaskQueue = queue.NewLockFreeQueue()
	poller.logger = logging.OrDefault(logger)
	return
}

// Close closes the poller, registered descriptors are left untouched.
func (p *Poller) Close() error {
	p.attachments = nil
	if err := os.NewSyscallError("close", unix.Close(p.fd)); err != nil {
		return err
	}
	return os.NewSyscallError("close", unix.Close(p.efd))
}

// Make the endianness of bytes compatible with more linux OSs under different processor-architectures,
// according to http://man7.org/linux/man-pages/man2/eventfd.2.html.
var (
	u uint64 = 1
	b        = (*(*[8]byte)(unsafe.Pointer(&u)))[:]
)

func (p *Poller) wakeup() (err error) {
	if atomic.CompareAndSwapInt32(&p.wakeupCall, 0, 1) {
		for _, err = unix.Write(p.efd, b); err == unix.EINTR; _, err = unix.Write(p.efd, b) {
		}
		if err == unix.EAGAIN {
			err = nil
		}
	}
	return os.NewSyscallError("write", err)
}

// UrgentTrigger puts task into urgentAsyncTaskQueue and wakes up the poller which is waiting for events,
// then the poller will get tasks from urgentAsyncTaskQueue and run them.
//
// Note that urgentAsyncTaskQueue is a queue with high-priority and its size is expected to be small,
// so only those urgent tasks should be put into this queue.
func (p *Poller) UrgentTrigger(fn queue.TaskFunc, arg any) error {
	task := queue.GetTask()
	task.Run, task.Arg = fn, arg
	p.urgentAsyncTaskQueue.Enqueue(task)
	return p.wakeup()
}

// Trigger is like UrgentTrigger but it puts task into asyncTaskQueue,
// call this method when the task is not so urgent.
//
// Note that asyncTaskQueue is a queue with low-priority whose size may grow large and tasks in it may backlog.
func (p *Poller) Trigger(fn queue.TaskFunc, arg any) error {
	task := queue.GetTask()
	task.Run, task.Arg = fn, arg
	p.asyncTaskQueue.Enqueue(task)
	return p.wakeup()
}

// Poll waits at most msec milliseconds for events (forever when msec is negative),
// dispatches them and runs the queued tasks if the poller was woken up.
// It returns the number of descriptor events dispatched.
func (p *Poller) Poll(msec int) (int, error) {
	n, err := unix.EpollWait(p.fd, p.events, msec)
	if err == unix.EINTR {
		return 0, nil
	} else if err != nil {
		err = os.NewSyscallError("epoll_wait", err)
		p.logger.Errorf("error occurs in epoll: %v", err)
		return 0, err
	}

	var (
		doChores   bool
		dispatched int
	)
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		fd := int(ev.Fd)
		if fd == p.efd { // poller is awakened to run tasks in queues.
			doChores = true
			_, _ = unix.Read(p.efd, p.efdBuf)
			continue
		}
		// The attachment may be gone if an earlier callback of this batch deleted it.
		pa, ok := p.attachments[fd]
		if !ok {
			continue
		}
		dispatched++
		if err = pa.Callback(fd, ev.Events, 0); err != nil {
			p.logger.Warnf("error occurs in event-loop: %v", err)
		}
	}

	if doChores {
		p.runTasks()
	}

	return dispatched, nil
}

func (p *Poller) runTasks() {
	task := p.urgentAsyncTaskQueue.Dequeue()
	for ; task != nil; task = p.urgentAsyncTaskQueue.Dequeue() {
		if err := task.Run(task.Arg); err != nil {
			p.logger.Warnf("error occurs in user-defined function, %v", err)
		}
		queue.PutTask(task)
	}
	for i := 0; i < MaxTasksPerWakeup; i++ {
		if task = p.asyncTaskQueue.Dequeue(); task == nil {
			break
		}
		if err := task.Run(task.Arg); err != nil {
			p.logger.Warnf("error occurs in user-defined function, %v", err)
		}
		queue.PutTask(task)
	}
	atomic.StoreInt32(&p.wakeupCall, 0)
	if !p.asyncTaskQueue.IsEmpty() || !p.urgentAsyncTaskQueue.IsEmpty() {
		_ = p.wakeup()
	}
}

// Registered reports whether fd is watched by the poller.
func (p *Poller) Registered(fd int) bool {
	_, ok := p.attachments[fd]
	return ok
}

func (p *Poller) add(pa *PollAttachment, events uint32) error {
	if !validAttachment(pa) {
		return ErrInvalidAttachment
	}
	if _, ok := p.attachments[pa.FD]; ok {
		return ErrAlreadyRegistered
	}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, pa.FD,
		&unix.EpollEvent{Fd: int32(pa.FD), Events: events}); err != nil {
		return os.NewSyscallError("epoll_ctl add", err)
	}
	p.attachments[pa.FD] = pa
	return nil
}

func (p *Poller) mod(pa *PollAttachment, events uint32) error {
	if !validAttachment(pa) {
		return ErrInvalidAttachment
	}
	if _, ok := p.attachments[pa.FD]; !ok {
		return ErrNotRegistered
	}
	if err := unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, pa.FD,
		&unix.EpollEvent{Fd: int32(pa.FD), Events: events}); err != nil {
		return os.NewSyscallError("epoll_ctl mod", err)
	}
	p.attachments[pa.FD] = pa
	return nil
}

// AddReadWrite registers the given file-descriptor with readable and writable events to the poller.
func (p *Poller) AddReadWrite(pa *PollAttachment) error {
	return p.add(pa, ReadWriteEvents)
}

// AddRead registers the given file-descriptor with readable event to the poller.
func (p *Poller) AddRead(pa *PollAttachment) error {
	return p.add(pa, ReadEvents)
}

// AddWrite registers the given file-descriptor with writable event to the poller.
func (p *Poller) AddWrite(pa *PollAttachment) error {
	return p.add(pa, WriteEvents)
}

// ModRead renews the given file-descriptor with readable event in the poller.
func (p *Poller) ModRead(pa *PollAttachment) error {
	return p.mod(pa, ReadEvents)
}

// ModReadWrite renews the given file-descriptor with readable and writable events in the poller.
func (p *Poller) ModReadWrite(pa *PollAttachment) error {
	return p.mod(pa, ReadWriteEvents)
}

// Delete removes the given file-descriptor from the poller.
func (p *Poller) Delete(fd int) error {
	if _, ok := p.attachments[fd]; !ok {
		return ErrNotRegistered
	}
	delete(p.attachments, fd)
	return os.NewSyscallError("epoll_ctl del", unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil))
}
