// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package packet

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator creates unique Packet IDs. Each generator has a random prefix, followed by a monotonic counter.
// An IDGenerator is safe for concurrent use.
type IDGenerator struct {
	prefix  string
	counter uint64
}

// NewIDGenerator creates a new IDGenerator with a random prefix.
func NewIDGenerator() *IDGenerator {
	return NewIDGeneratorWithPrefix(strings.SplitN(uuid.NewString(), "-", 2)[0])
}

// NewIDGeneratorWithPrefix creates a new IDGenerator for a fixed prefix. This is mostly useful for testing.
func NewIDGeneratorWithPrefix(prefix string) *IDGenerator {
	return &IDGenerator{prefix: prefix}
}

// NextID returns the next unused ID.
func (gen *IDGenerator) NextID() string {
	return fmt.Sprintf("%s-%d", gen.prefix, atomic.AddUint64(&gen.counter, 1))
}

var defaultIDGenerator = NewIDGenerator()

// NewID returns a new, process-wide unique ID.
func NewID() string {
	return defaultIDGenerator.NextID()
}
