// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"reflect"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// Filter is a predicate over Packets.
type Filter interface {
	// Accept checks if this Filter matches the Packet. It must not block and must be safe for concurrent use.
	Accept(p packet.Packet) bool
}

// Func adapts an ordinary function to a Filter.
type Func func(p packet.Packet) bool

// Accept calls f(p).
func (f Func) Accept(p packet.Packet) bool {
	return f(p)
}

// MatchAll accepts every Packet.
type MatchAll struct{}

// Accept always returns true.
func (MatchAll) Accept(_ packet.Packet) bool {
	return true
}

// sameFilter compares two Filters by identity. Filters of non-comparable types, e.g., Func, are never the same.
func sameFilter(a, b Filter) bool {
	if a == nil || b == nil {
		return a == b
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
