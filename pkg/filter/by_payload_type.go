// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"sort"
	"sync"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// ByPayloadType accepts Packets whose payload type name is registered. Like ByKind, it rejects every Packet until at
// least one type was registered.
type ByPayloadType struct {
	mutex sync.RWMutex
	types map[string]struct{}
}

// NewByPayloadType creates a ByPayloadType Filter for the given type names.
func NewByPayloadType(types ...string) *ByPayloadType {
	f := &ByPayloadType{types: make(map[string]struct{})}
	f.Add(types...)
	return f
}

// Add registers more type names.
func (f *ByPayloadType) Add(types ...string) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.types == nil {
		f.types = make(map[string]struct{})
	}
	for _, t := range types {
		f.types[t] = struct{}{}
	}
}

// Remove deregisters a type name and reports if it was registered.
func (f *ByPayloadType) Remove(typ string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	_, ok := f.types[typ]
	delete(f.types, typ)
	return ok
}

// Types returns the registered type names, sorted.
func (f *ByPayloadType) Types() []string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	types := make([]string, 0, len(f.types))
	for t := range f.types {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Accept checks if the Packet's type name is registered.
func (f *ByPayloadType) Accept(p packet.Packet) bool {
	if p.Type == "" {
		return false
	}

	f.mutex.RLock()
	defer f.mutex.RUnlock()

	_, ok := f.types[p.Type]
	return ok
}
