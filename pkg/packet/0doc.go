// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package packet contains the message unit exchanged between agents.
//
// A Packet is addressed from one Address to another and tagged with a Kind. The Kind replaces any kind of runtime type
// inspection: senders set it explicitly and filters dispatch on it. Packets of the request/reply family (Request,
// Result and Error) are correlated by their ID. The payload is opaque to this package and is produced by some
// serialization provider, e.g., the codec package.
package packet
