// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"sync"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// ByIDAndSender accepts Packets of the request/reply family which carry a sender and match the optionally configured
// ID and sender. An empty ID or a zero sender Address is unset and matches everything.
type ByIDAndSender struct {
	mutex  sync.RWMutex
	id     string
	sender packet.Address
}

// NewByIDAndSender creates a ByIDAndSender Filter. Both arguments might be unset.
func NewByIDAndSender(id string, sender packet.Address) *ByIDAndSender {
	return &ByIDAndSender{id: id, sender: sender}
}

// SetID changes the expected ID; an empty string unsets it.
func (f *ByIDAndSender) SetID(id string) {
	f.mutex.Lock()
	f.id = id
	f.mutex.Unlock()
}

// SetSender changes the expected sender; a zero Address unsets it.
func (f *ByIDAndSender) SetSender(sender packet.Address) {
	f.mutex.Lock()
	f.sender = sender
	f.mutex.Unlock()
}

// Accept checks the Packet's family, sender and ID.
func (f *ByIDAndSender) Accept(p packet.Packet) bool {
	if !p.Kind.IsRequestReply() || p.From.IsZero() {
		return false
	}

	f.mutex.RLock()
	defer f.mutex.RUnlock()

	if f.id != "" && f.id != p.ID {
		return false
	}
	if !f.sender.IsZero() && f.sender != p.From {
		return false
	}
	return true
}
