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

import "github.com/panjf2000/zmqloop/pkg/pool/bytebuffer"

// Message is a message frame backed by a pooled buffer.
//
// A received message belongs to the receiver, which must either Close it or move it
// to another socket with SendMsg. A closed or moved message is empty.
type Message struct {
	buf *bytebuffer.ByteBuffer
}

// NewMessage creates a message holding a copy of data.
func NewMessage(data []byte) *Message {
	buf := bytebuffer.Get()
	_, _ = buf.Write(data)
	return &Message{buf: buf}
}

// Bytes returns the payload, it is only valid until the message is closed or moved.
func (m *Message) Bytes() []byte {
	if m == nil || m.buf == nil {
		return nil
	}
	return m.buf.B
}

// String returns the payload as a string.
func (m *Message) String() string {
	return string(m.Bytes())
}

// Len returns the payload size.
func (m *Message) Len() int {
	return len(m.Bytes())
}

// Closed reports whether the message was closed or moved.
func (m *Message) Closed() bool {
	return m == nil || m.buf == nil
}

// Close releases the payload, calling it again is a no-op.
func (m *Message) Close() error {
	if m == nil || m.buf == nil {
		return nil
	}
	bytebuffer.Put(m.buf)
	m.buf = nil
	return nil
}

// take moves the payload out of m.
func (m *Message) take() *Message {
	moved := &Message{buf: m.buf}
	m.buf = nil
	return moved
}

func (m *Message) clone() *Message {
	return &Message{buf: bytebuffer.Clone(m.buf)}
}
