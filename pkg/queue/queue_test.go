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

package queue_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panjf2000/zmqloop/pkg/queue"
)

func TestLockFreeQueue(t *testing.T) {
	const taskNum = 10000
	q := queue.NewLockFreeQueue()
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			for i := 0; i < taskNum; i++ {
				q.Enqueue(&queue.Task{})
			}
		}()
	}

	var counter int32
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			for {
				task := q.Dequeue()
				if task != nil {
					atomic.AddInt32(&counter, 1)
				}
				if task == nil && atomic.LoadInt32(&counter) == 2*taskNum {
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.True(t, q.IsEmpty())
	assert.Zero(t, q.Len())
	t.Logf("sent and received all %d tasks", 2*taskNum)
}

func TestLockFreeQueueOrder(t *testing.T) {
	q := queue.NewLockFreeQueue()
	assert.Nil(t, q.Dequeue())
	for i := 0; i < 8; i++ {
		task := queue.GetTask()
		task.Arg = i
		q.Enqueue(task)
	}
	assert.Equal(t, 8, q.Len())
	for i := 0; i < 8; i++ {
		task := q.Dequeue()
		assert.Equal(t, i, task.Arg)
		queue.PutTask(task)
	}
	assert.True(t, q.IsEmpty())
}
