// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// outcome is either the resolving Packet or an error.
type outcome struct {
	reply packet.Packet
	err   error
}

// pendingCall correlates an outstanding request with its reply.
type pendingCall struct {
	id           string
	expectedFrom packet.Address
	deadline     time.Time

	// result receives exactly one outcome. Only the goroutine which removed this pendingCall from its registry
	// writes to it, so its buffer never blocks.
	result chan outcome
}

func newPendingCall(id string, expectedFrom packet.Address, deadline time.Time) *pendingCall {
	return &pendingCall{
		id:           id,
		expectedFrom: expectedFrom,
		deadline:     deadline,
		result:       make(chan outcome, 1),
	}
}

// pendingCalls is the registry of all outstanding pendingCalls, keyed by their ID.
type pendingCalls struct {
	mutex  sync.Mutex
	calls  map[string]*pendingCall
	closed bool
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{calls: make(map[string]*pendingCall)}
}

// register a new pendingCall, unless its ID is already in use or this registry was cancelled.
func (pcs *pendingCalls) register(pc *pendingCall) error {
	pcs.mutex.Lock()
	defer pcs.mutex.Unlock()

	if pcs.closed {
		return ErrClosed
	}
	if _, exists := pcs.calls[pc.id]; exists {
		return errors.Wrapf(ErrDuplicateID, "ID %q", pc.id)
	}

	pcs.calls[pc.id] = pc
	return nil
}

// resolve the pendingCall matching this Packet's ID and sender. A matching Packet which is not of a reply Kind
// resolves the pendingCall with ErrMalformedReply. Returns true if a pendingCall was resolved.
func (pcs *pendingCalls) resolve(p packet.Packet) bool {
	if p.ID == "" {
		return false
	}

	pcs.mutex.Lock()
	pc, exists := pcs.calls[p.ID]
	if !exists || pc.expectedFrom != p.From {
		pcs.mutex.Unlock()
		return false
	}
	delete(pcs.calls, p.ID)
	pcs.mutex.Unlock()

	if p.Kind.IsReply() {
		pc.result <- outcome{reply: p}
	} else {
		pc.result <- outcome{err: errors.Wrapf(ErrMalformedReply, "received %v", p.Kind)}
	}
	return true
}

// remove a pendingCall, if it is still registered.
func (pcs *pendingCalls) remove(pc *pendingCall) {
	pcs.mutex.Lock()
	defer pcs.mutex.Unlock()

	if other, exists := pcs.calls[pc.id]; exists && other == pc {
		delete(pcs.calls, pc.id)
	}
}

// cancelAll resolves all pendingCalls with the given error and rejects future registrations. Returns the number of
// cancelled pendingCalls.
func (pcs *pendingCalls) cancelAll(err error) int {
	pcs.mutex.Lock()
	calls := pcs.calls
	pcs.calls = make(map[string]*pendingCall)
	pcs.closed = true
	pcs.mutex.Unlock()

	for _, pc := range calls {
		pc.result <- outcome{err: err}
	}
	return len(calls)
}

func (pcs *pendingCalls) len() int {
	pcs.mutex.Lock()
	defer pcs.mutex.Unlock()

	return len(pcs.calls)
}
