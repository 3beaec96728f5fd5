// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package filter provides predicates deciding which inbound Packets a handler should see.
//
// All Filters implement the single Accept method. Evaluation never fails: a Packet which cannot be matched, e.g.,
// because it lacks a sender, is simply rejected by this Filter and might still be accepted by others.
//
// The Composite Filter combines other Filters with include-OR and exclude-VETO semantics: a Packet is admitted if any
// include Filter accepts it or if there are no includes at all, and it is rejected as soon as one exclude Filter
// accepts it. Leaf Filters with an empty configuration behave differently: a ByKind without any registered Kind
// rejects everything.
package filter
