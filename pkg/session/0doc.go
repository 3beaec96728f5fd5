// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session implements an agent's view of its messaging connection.
//
// A Session wraps a transport Connection. It keeps track of the presence of its peers, routes every inbound Packet
// to all bindings whose Filter accepts it and correlates requests with their replies for the blocking Call.
//
// Inbound Packets are handled in two steps, both in arrival order. First, a Packet might resolve at most one pending
// Call, identified by the Packet's ID and sender. Afterwards, the Packet is queued together with the bindings present at
// its arrival for a dispatcher goroutine, which hands it to each matching Handler, including Packets which already
// resolved a Call. The queue is unbounded and Handlers are executed by the dispatcher and not by the transport, so a
// Handler might perform a Call itself, even while further Packets keep arriving.
package session
