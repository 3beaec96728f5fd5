// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"time"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// RosterItem is a wrapper for meta data around a remembered Address. The Store operates on RosterItems.
type RosterItem struct {
	Id      string `badgerhold:"key"`
	Address packet.Address

	Available bool      `badgerholdIndex:"Available"`
	LastSeen  time.Time `badgerholdIndex:"LastSeen"`
	Added     time.Time
}

// newRosterItem creates a new RosterItem for an Address.
func newRosterItem(addr packet.Address) RosterItem {
	now := time.Now()

	return RosterItem{
		Id:      rosterKey(addr),
		Address: addr,

		LastSeen: now,
		Added:    now,
	}
}

// rosterKey is the Store's key for an Address.
func rosterKey(addr packet.Address) string {
	return addr.String()
}
