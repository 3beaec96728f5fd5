// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Message is a generic interface to specify an information exchange between an ApplicationAgent and the Hub.
// The following types named *Message are implementations of this interface.
type Message interface {
	// Recipients returns a list of Addresses to which this message is addressed.
	// However, if this message is not addressed to some specific Address, nil must be returned.
	Recipients() []packet.Address
}

// PacketMessage indicates a transmitted Packet.
// If the Message is received from an ApplicationAgent, it is an incoming Packet.
// If the Message is sent from an ApplicationAgent, it is an outgoing Packet.
type PacketMessage struct {
	Packet packet.Packet
}

// Recipients are the Packet's recipient for a PacketMessage.
func (pm PacketMessage) Recipients() []packet.Address {
	return []packet.Address{pm.Packet.To}
}

// SubscribeMessage is sent from an ApplicationAgent to subscribe to another Address' presence.
type SubscribeMessage struct {
	Subscriber packet.Address
	Target     packet.Address
}

// Recipients are the subscriber of a SubscribeMessage.
func (sm SubscribeMessage) Recipients() []packet.Address {
	return []packet.Address{sm.Subscriber}
}

// PresenceMessage carries an Address' presence.
// If the Message is sent from an ApplicationAgent, it publishes its own presence.
// If the Message is received from an ApplicationAgent, it informs about a subscribed Address. Ack marks the answer to
// a SubscribeMessage.
type PresenceMessage struct {
	Address     packet.Address
	Available   bool
	Ack         bool
	Subscribers []packet.Address
}

// Recipients are the Subscribers of a PresenceMessage.
func (pm PresenceMessage) Recipients() []packet.Address {
	return pm.Subscribers
}

// LeaveMessage is sent from an ApplicationAgent whose connection is closing down.
type LeaveMessage struct {
	Address packet.Address
}

// Recipients are not available for a LeaveMessage.
func (lm LeaveMessage) Recipients() []packet.Address {
	return nil
}

// ShutdownMessage indicates the closing down of an ApplicationAgent.
// If the Message is received from an ApplicationAgent, it must close itself down.
// If the Message is sent from an ApplicationAgent, it is closing down itself.
type ShutdownMessage struct{}

// Recipients are not available for a ShutdownMessage.
func (sm ShutdownMessage) Recipients() []packet.Address {
	return nil
}
