// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package m2m

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// OIDGenerator creates object IDs of the form "prefix:counter", or just "counter" without a prefix.
type OIDGenerator struct {
	mutex   sync.RWMutex
	prefix  string
	counter uint64
}

// SetPrefix changes the prefix of all subsequently generated OIDs. An agent should choose a globally unique prefix,
// e.g., its Address.
func (gen *OIDGenerator) SetPrefix(prefix string) {
	gen.mutex.Lock()
	gen.prefix = prefix
	gen.mutex.Unlock()
}

// NextOID returns an unused OID.
func (gen *OIDGenerator) NextOID() string {
	n := strconv.FormatUint(atomic.AddUint64(&gen.counter, 1), 10)

	gen.mutex.RLock()
	defer gen.mutex.RUnlock()

	if gen.prefix == "" {
		return n
	}
	return gen.prefix + ":" + n
}

var defaultOIDGenerator = &OIDGenerator{}

// SetOIDPrefix sets the prefix for OIDs of new RPCs.
func SetOIDPrefix(prefix string) {
	defaultOIDGenerator.SetPrefix(prefix)
}
