// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import "github.com/dtn7/imoperator-go/pkg/packet"

// ApplicationAgent is an interface to describe the Hub's view of a connected agent, which can both receive and
// transmit Messages. Each implementation must provide the following methods to communicate its addresses.
// Furthermore two channels must be available, one for receiving and one for sending Messages.
//
// On closing down, an ApplicationAgent MUST close its MessageSender channel and MUST leave the MessageReceiver
// open. The supervising code MUST close the MessageReceiver of its subjects.
type ApplicationAgent interface {
	// Addresses returns the Addresses that this ApplicationAgent answers to.
	Addresses() []packet.Address

	// MessageReceiver is a channel on which the ApplicationAgent must listen for incoming Messages.
	MessageReceiver() chan Message

	// MessageSender is a channel to which the ApplicationAgent can send outgoing Messages.
	MessageSender() chan Message
}

// bagContainsAddress checks if some bag/array/slice of Addresses contains another collection of Addresses.
func bagContainsAddress(bag []packet.Address, addrs []packet.Address) bool {
	matches := map[packet.Address]struct{}{}

	for _, addr := range addrs {
		matches[addr] = struct{}{}
	}

	for _, addr := range bag {
		if _, ok := matches[addr]; ok {
			return true
		}
	}
	return false
}

// AppAgentContainsAddress checks if an ApplicationAgent listens to at least one of the requested Addresses.
func AppAgentContainsAddress(app ApplicationAgent, addrs []packet.Address) bool {
	return bagContainsAddress(app.Addresses(), addrs)
}

// AppAgentHasAddress checks if an ApplicationAgent listens to this Address.
func AppAgentHasAddress(app ApplicationAgent, addr packet.Address) bool {
	return AppAgentContainsAddress(app, []packet.Address{addr})
}
