// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"sync"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// delivery is an inbound Packet together with the bindings present at its arrival.
type delivery struct {
	packet   packet.Packet
	bindings []binding
}

// inbox is an unbounded FIFO between the inbound router and the dispatcher. Pushing never blocks, so the
// transport's delivery context keeps running while Handlers are busy.
type inbox struct {
	mutex sync.Mutex
	queue []delivery

	// signal holds at most one pending wake-up for the dispatcher.
	signal chan struct{}
}

func newInbox(capacity int) *inbox {
	return &inbox{
		queue:  make([]delivery, 0, capacity),
		signal: make(chan struct{}, 1),
	}
}

func (in *inbox) push(d delivery) {
	in.mutex.Lock()
	in.queue = append(in.queue, d)
	in.mutex.Unlock()

	select {
	case in.signal <- struct{}{}:
	default:
	}
}

// pop the oldest delivery; ok is false for an empty inbox.
func (in *inbox) pop() (d delivery, ok bool) {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	if len(in.queue) == 0 {
		return
	}

	d, ok = in.queue[0], true
	in.queue[0] = delivery{}
	in.queue = in.queue[1:]
	return
}

func (in *inbox) len() int {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	return len(in.queue)
}
