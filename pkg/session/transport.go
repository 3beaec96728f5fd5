// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Dialer establishes a Connection, e.g., based on some configuration.
type Dialer interface {
	Dial(ctx context.Context) (Connection, error)
}

// Connection is an established transport session, as provided by the agent package's WebSocket client.
type Connection interface {
	// LocalAddress is the Address of this end of the Connection.
	LocalAddress() packet.Address

	// Send transmits a Packet.
	Send(p packet.Packet) error

	// OnPacket registers the callback for inbound Packets. The callback must be called sequentially, in the order
	// of arrival.
	OnPacket(fn func(p packet.Packet))

	// OnPresence registers the callback for presence changes of subscribed Addresses.
	OnPresence(fn func(addr packet.Address, available bool))

	// IsAvailable returns the last known presence of an Address.
	IsAvailable(addr packet.Address) bool

	// EnsureSubscribed subscribes to an Address' presence. It returns after the current presence is known.
	EnsureSubscribed(addr packet.Address) error

	// SetAvailable publishes this end's own presence.
	SetAvailable(available bool) error

	// Close terminates the Connection.
	Close() error
}

// Roster remembers the Addresses a Session has contacted, allowing a later Session to subscribe to them right away.
type Roster interface {
	Remember(addr packet.Address) error
	Addresses() ([]packet.Address, error)
	UpdatePresence(addr packet.Address, available bool) error
}
