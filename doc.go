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

/*
Package zmqloop bridges message sockets into a single-threaded reactor.

A Bridge watches the signaling descriptor of a socket with a reactor poll handle and,
whenever the descriptor becomes readable, drains the socket without blocking and hands
every message to a user callback on the loop goroutine. The signaling descriptor only
signals that the socket state changed, not how many messages are queued, so a single
readiness event drains the socket until it reports would-block, re-checking the socket
events every RecheckInterval messages and yielding to the loop after MaxBatch messages.

A Reaper runs the deferred commands of a messaging context from the same loop, which
is how sockets closed under a context without I/O threads get reaped.

Echo server built upon zmqloop is shown below:

	package main

	import (
		"log"

		"github.com/panjf2000/zmqloop"
		"github.com/panjf2000/zmqloop/pkg/reactor"
		"github.com/panjf2000/zmqloop/pkg/zsock"
	)

	func main() {
		loop, err := reactor.NewLoop()
		if err != nil {
			log.Fatal(err)
		}
		ctx, _ := zsock.NewContext()
		rep, _ := ctx.NewSocket(zsock.Rep)
		if err = rep.Bind("inproc://echo"); err != nil {
			log.Fatal(err)
		}
		_, err = zmqloop.Register(loop, rep, func(b *zmqloop.Bridge, msg *zsock.Message, _ any) {
			// Moving the message back to the requester echoes it without copying.
			_ = rep.SendMsg(msg, 0)
		}, nil)
		if err != nil {
			log.Fatal(err)
		}
		log.Fatal(loop.Run(reactor.RunDefault))
	}
*/
package zmqloop
