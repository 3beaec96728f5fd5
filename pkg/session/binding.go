// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/filter"
	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Handler processes inbound Packets accepted by its bound Filter.
type Handler interface {
	HandlePacket(s *Session, p packet.Packet)
}

// HandlerFunc adapts an ordinary function to a Handler.
type HandlerFunc func(s *Session, p packet.Packet)

// HandlePacket calls f(s, p).
func (f HandlerFunc) HandlePacket(s *Session, p packet.Packet) {
	f(s, p)
}

// BindingID identifies a binding of a Filter and a Handler within its Session.
type BindingID uint64

func (id BindingID) String() string {
	return fmt.Sprintf("binding-%d", uint64(id))
}

type binding struct {
	id      BindingID
	filter  filter.Filter
	handler Handler
}

// Bind registers a Handler for all inbound Packets arriving afterwards which are accepted by the Filter. Packets
// which already arrived but are still queued for the Handlers are not delivered to the new binding.
func (s *Session) Bind(f filter.Filter, h Handler) (BindingID, error) {
	if f == nil || h == nil {
		return 0, fmt.Errorf("both filter and handler are required")
	}

	s.bindingsMutex.Lock()
	defer s.bindingsMutex.Unlock()

	if !s.Connected() {
		return 0, ErrClosed
	}

	s.nextBinding++
	b := binding{id: s.nextBinding, filter: f, handler: h}

	// Copy on write; the dispatcher iterates over its own snapshot.
	bindings := make([]binding, len(s.bindings), len(s.bindings)+1)
	copy(bindings, s.bindings)
	s.bindings = append(bindings, b)

	s.log().WithField("binding", b.id).Debug("Bound handler")
	return b.id, nil
}

// Unbind removes a binding and reports if it existed. Packets which arrived before might still be handed to it.
func (s *Session) Unbind(id BindingID) bool {
	s.bindingsMutex.Lock()
	defer s.bindingsMutex.Unlock()

	for i, b := range s.bindings {
		if b.id != id {
			continue
		}

		bindings := make([]binding, 0, len(s.bindings)-1)
		bindings = append(bindings, s.bindings[:i]...)
		s.bindings = append(bindings, s.bindings[i+1:]...)

		s.log().WithField("binding", id).Debug("Unbound handler")
		return true
	}
	return false
}

// Bindings returns the IDs of all current bindings in their registration order.
func (s *Session) Bindings() []BindingID {
	s.bindingsMutex.RLock()
	defer s.bindingsMutex.RUnlock()

	ids := make([]BindingID, len(s.bindings))
	for i, b := range s.bindings {
		ids[i] = b.id
	}
	return ids
}

func (s *Session) snapshotBindings() []binding {
	s.bindingsMutex.RLock()
	defer s.bindingsMutex.RUnlock()

	return s.bindings
}

// dispatch hands a Packet to every Handler of its delivery whose Filter accepts it.
func (s *Session) dispatch(d delivery) {
	p := d.packet

	var matched int
	for _, b := range d.bindings {
		if !b.filter.Accept(p) {
			continue
		}

		matched++
		b.handler.HandlePacket(s, p)
	}

	if matched == 0 {
		s.log().WithFields(log.Fields{
			"packet": p,
		}).Debug("Inbound packet matched no binding")
	}
}
