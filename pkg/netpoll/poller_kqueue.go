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

import (
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/panjf2000/zmqloop/pkg/logging"
	"github.com/panjf2000/zmqloop/pkg/queue"
)

// Poller represents a poller which is in charge of monitoring file-descriptors.
//
// All methods except Trigger and UrgentTrigger must be called from the goroutine
// that calls Poll.
type Poller struct {
	fd                   int
	wakeupCall           int32
	events               []unix.Kevent_t
	attachments          map[int]*PollAttachment
	interests            map[int]int16
	asyncTaskQueue       queue.AsyncTaskQueue // queue with low priority
	urgentAsyncTaskQueue queue.AsyncTaskQueue // queue with high priority
	logger               logging.Logger
}

// OpenPoller instantiates a poller, a nil logger selects the default one.
func OpenPoller(logger logging.Logger) (poller *Poller, err error) {
	poller = new(Poller)
	if poller.fd, err = unix.Kqueue(); err != nil {
		poller = nil
		err = os.NewSyscallError("kqueue", err)
		return
	}
	var ev unix.Kevent_t
	unix.SetKevent(&ev, 0, unix.EVFILT_USER, unix.EV_ADD|unix.EV_CLEAR)
	if _, err = unix.Kevent(poller.fd, []unix.Kevent_t{ev}, nil, nil); err != nil {
		_ = unix.Close(poller.fd)
		poller = nil
		err = os.NewSyscallError("kevent add|clear", err)
		return
	}
	poller.events = make([]unix.Kevent_t, pollEventsCap)
	poller.attachments = make(map[int]*PollAttachment)
	poller.interests = make(map[int]int16)
	poller.asyncTaskQueue = queue.NewLockFreeQueue()
	poller.urgentAsyncTaskQueue = queue.NewLockFreeQueue()
	poller.logger = logging.OrDefault(logger)
	return
}

// Close closes the poller, registered descriptors are left untouched.
func (p *Poller) Close() error {
	p.attachments, p.interests = nil, nil
	return os.NewSyscallError("close", unix.Close(p.fd))
}

func (p *Poller) wakeup() (err error) {
	if atomic.CompareAndSwapInt32(&p.wakeupCall, 0, 1) {
		var ev unix.Kevent_t
		unix.SetKevent(&ev, 0, unix.EVFILT_USER, 0)
		ev.Fflags = unix.NOTE_TRIGGER
		for _, err = unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil); err == unix.EINTR; _, err = unix.Kevent(p.fd, []unix.Kevent_t{ev}, nil, nil) {
		}
		if err == unix.EAGAIN {
			err = nil
		}
	}
	return os.NewSyscallError("kevent trigger", err)
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
	var tsp *unix.Timespec
	if msec >= 0 {
		ts := unix.NsecToTimespec(int64(time.Duration(msec) * time.Millisecond))
		tsp = &ts
	}
	n, err := unix.Kevent(p.fd, nil, p.events, tsp)
	if err == unix.EINTR {
		return 0, nil
	} else if err != nil {
		err = os.NewSyscallError("kevent wait", err)
		p.logger.Errorf("error occurs in kqueue: %v", err)
		return 0, err
	}

	var (
		doChores   bool
		dispatched int
	)
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		if ev.Filter == unix.EVFILT_USER {
			doChores = true
			continue
		}
		fd := int(ev.Ident)
		pa, ok := p.attachments[fd]
		if !ok {
			continue
		}
		dispatched++
		if err = pa.Callback(fd, ev.Filter, ev.Flags); err != nil {
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

const (
	interestRead  int16 = 1
	interestWrite int16 = 2
)

// apply adds and deletes the read and write filters of fd so that they match want.
func (p *Poller) apply(fd int, have, want int16) error {
	changes := make([]unix.Kevent_t, 0, 2)
	for _, f := range []struct {
		bit    int16
		filter int
	}{{interestRead, unix.EVFILT_READ}, {interestWrite, unix.EVFILT_WRITE}} {
		var ev unix.Kevent_t
		switch {
		case want&f.bit != 0 && have&f.bit == 0:
			unix.SetKevent(&ev, fd, f.filter, unix.EV_ADD)
		case want&f.bit == 0 && have&f.bit != 0:
			unix.SetKevent(&ev, fd, f.filter, unix.EV_DELETE)
		default:
			continue
		}
		changes = append(changes, ev)
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.fd, changes, nil, nil)
	return os.NewSyscallError("kevent add|delete", err)
}

func (p *Poller) add(pa *PollAttachment, interest int16) error {
	if !validAttachment(pa) {
		return ErrInvalidAttachment
	}
	if _, ok := p.attachments[pa.FD]; ok {
		return ErrAlreadyRegistered
	}
	if err := p.apply(pa.FD, 0, interest); err != nil {
		return err
	}
	p.attachments[pa.FD], p.interests[pa.FD] = pa, interest
	return nil
}

func (p *Poller) mod(pa *PollAttachment, interest int16) error {
	if !validAttachment(pa) {
		return ErrInvalidAttachment
	}
	have, ok := p.interests[pa.FD]
	if !ok {
		return ErrNotRegistered
	}
	if err := p.apply(pa.FD, have, interest); err != nil {
		return err
	}
	p.attachments[pa.FD], p.interests[pa.FD] = pa, interest
	return nil
}

// AddReadWrite registers the given file-descriptor with readable and writable events to the poller.
func (p *Poller) AddReadWrite(pa *PollAttachment) error {
	return p.add(pa, interestRead|interestWrite)
}

// AddRead registers the given file-descriptor with readable event to the poller.
func (p *Poller) AddRead(pa *PollAttachment) error {
	return p.add(pa, interestRead)
}

// AddWrite registers the given file-descriptor with writable event to the poller.
func (p *Poller) AddWrite(pa *PollAttachment) error {
	return p.add(pa, interestWrite)
}

// ModRead renews the given file-descriptor with readable event in the poller.
func (p *Poller) ModRead(pa *PollAttachment) error {
	return p.mod(pa, interestRead)
}

// ModReadWrite renews the given file-descriptor with readable and writable events in the poller.
func (p *Poller) ModReadWrite(pa *PollAttachment) error {
	return p.mod(pa, interestRead|interestWrite)
}

// Delete removes the given file-descriptor from the poller.
func (p *Poller) Delete(fd int) error {
	have, ok := p.interests[fd]
	if !ok {
		return ErrNotRegistered
	}
	delete(p.attachments, fd)
	delete(p.interests, fd)
	return p.apply(fd, have, 0)
}
