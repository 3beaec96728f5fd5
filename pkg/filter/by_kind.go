// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"sort"
	"sync"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// ByKind accepts Packets of one of its registered Kinds. Without any registered Kind, every Packet is rejected.
type ByKind struct {
	mutex sync.RWMutex
	kinds map[packet.Kind]struct{}
}

// NewByKind creates a ByKind Filter for the given Kinds.
func NewByKind(kinds ...packet.Kind) *ByKind {
	f := &ByKind{kinds: make(map[packet.Kind]struct{})}
	f.Add(kinds...)
	return f
}

// Add registers more Kinds.
func (f *ByKind) Add(kinds ...packet.Kind) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.kinds == nil {
		f.kinds = make(map[packet.Kind]struct{})
	}
	for _, k := range kinds {
		f.kinds[k] = struct{}{}
	}
}

// Remove deregisters a Kind and reports if it was registered.
func (f *ByKind) Remove(kind packet.Kind) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	_, ok := f.kinds[kind]
	delete(f.kinds, kind)
	return ok
}

// Kinds returns the registered Kinds in ascending order.
func (f *ByKind) Kinds() []packet.Kind {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	kinds := make([]packet.Kind, 0, len(f.kinds))
	for k := range f.kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Accept checks if the Packet's Kind is registered.
func (f *ByKind) Accept(p packet.Packet) bool {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	_, ok := f.kinds[p.Kind]
	return ok
}
