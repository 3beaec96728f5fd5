// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"sync"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// MuxAgent mimics an ApplicationAgent to be used as a multiplexer for different ApplicationAgents.
//
// After a ShutdownMessage was passed on to all children, the MuxAgent waits for its children to close down before
// closing its own MessageSender.
type MuxAgent struct {
	sync.Mutex

	receiver chan Message
	sender   chan Message

	children []ApplicationAgent
	childWg  sync.WaitGroup
	closed   bool
}

// NewMuxAgent creates a new MuxAgent used to multiplex different ApplicationAgents.
func NewMuxAgent() (mux *MuxAgent) {
	mux = &MuxAgent{
		receiver: make(chan Message),
		sender:   make(chan Message),
	}

	go mux.handle()

	return
}

func (mux *MuxAgent) handle() {
	defer close(mux.sender)

	for msg := range mux.receiver {
		_, isShutdown := msg.(ShutdownMessage)

		mux.Lock()
		for _, child := range mux.children {
			if rec := msg.Recipients(); rec == nil || AppAgentContainsAddress(child, rec) {
				child.MessageReceiver() <- msg
			}
		}
		if isShutdown {
			mux.closed = true
		}
		mux.Unlock()

		if isShutdown {
			mux.childWg.Wait()
			return
		}
	}
}

// Register a new ApplicationAgent for this multiplexer. Returns false if this MuxAgent was already shut down.
// If this ApplicationAgent closes its channel or broadcasts a ShutdownMessage, it will be unregistered.
func (mux *MuxAgent) Register(agent ApplicationAgent) bool {
	mux.Lock()
	defer mux.Unlock()

	if mux.closed {
		return false
	}

	mux.children = append(mux.children, agent)
	mux.childWg.Add(1)
	go mux.handleChild(agent)

	return true
}

func (mux *MuxAgent) handleChild(agent ApplicationAgent) {
	defer mux.childWg.Done()

	for msg := range agent.MessageSender() {
		if _, isShutdown := msg.(ShutdownMessage); isShutdown {
			break
		}

		mux.sender <- msg
	}

	mux.unregister(agent)
}

// unregister a previously registered ApplicationAgent.
// This will also automatically shutdown this ApplicationAgent.
func (mux *MuxAgent) unregister(agent ApplicationAgent) {
	mux.Lock()
	defer mux.Unlock()

	close(agent.MessageReceiver())

	for i, child := range mux.children {
		if child == agent {
			mux.children = append(mux.children[:i], mux.children[i+1:]...)
			break
		}
	}
}

func (mux *MuxAgent) Addresses() (addrs []packet.Address) {
	mux.Lock()
	defer mux.Unlock()

	for _, child := range mux.children {
		addrs = append(addrs, child.Addresses()...)
	}
	return
}

func (mux *MuxAgent) MessageReceiver() chan Message {
	return mux.receiver
}

func (mux *MuxAgent) MessageSender() chan Message {
	return mux.sender
}
