// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package m2m provides machine-to-machine payloads exchanged between agents.
//
// Payloads might be decorated: an RPC names a remote method, a Confidence expresses the creator's belief in the
// asserted content, a TimeBounded limits its validity and a Personalized names the record's subject. All payloads are
// registered in the package's Registry.
package m2m
