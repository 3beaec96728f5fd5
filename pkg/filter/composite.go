// SPDX-FileCopyrightText: 2026 imoperator-go contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package filter

import (
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/imoperator-go/pkg/packet"
)

// filterLists is an immutable snapshot of a Composite's configuration.
type filterLists struct {
	includes []Filter
	excludes []Filter
}

// Composite combines multiple Filters. A Packet is accepted if at least one include Filter accepts it, or if there
// are no include Filters at all, and no exclude Filter accepts it. An empty Composite accepts every Packet.
//
// Filters might be added or removed while other goroutines evaluate this Composite. Each modification replaces the
// current snapshot; Accept works on the snapshot present at its start and never blocks.
type Composite struct {
	mutex   sync.Mutex
	lists   atomic.Pointer[filterLists]
	verbose atomic.Bool
}

// NewComposite creates a Composite with the given include Filters and without any exclude Filter.
func NewComposite(includes ...Filter) *Composite {
	c := &Composite{}
	for _, f := range includes {
		c.AddInclude(f)
	}
	return c
}

// SetVerbose enables the tracing of each evaluation step on the logrus trace level.
func (c *Composite) SetVerbose(verbose bool) {
	c.verbose.Store(verbose)
}

func (c *Composite) snapshot() *filterLists {
	if l := c.lists.Load(); l != nil {
		return l
	}
	return &filterLists{}
}

// modify replaces the current snapshot by the result of fn, which works on copies of the lists.
func (c *Composite) modify(fn func(includes, excludes []Filter) ([]Filter, []Filter, bool)) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	old := c.snapshot()
	includes := append([]Filter(nil), old.includes...)
	excludes := append([]Filter(nil), old.excludes...)

	includes, excludes, changed := fn(includes, excludes)
	if changed {
		c.lists.Store(&filterLists{includes: includes, excludes: excludes})
	}
	return changed
}

func removeFilter(fs []Filter, f Filter) ([]Filter, bool) {
	for i, other := range fs {
		if sameFilter(other, f) {
			return append(fs[:i], fs[i+1:]...), true
		}
	}
	return fs, false
}

// AddInclude appends an include Filter. A nil Filter is ignored.
func (c *Composite) AddInclude(f Filter) {
	if f == nil {
		return
	}
	c.modify(func(includes, excludes []Filter) ([]Filter, []Filter, bool) {
		return append(includes, f), excludes, true
	})
}

// AddExclude appends an exclude Filter. A nil Filter is ignored.
func (c *Composite) AddExclude(f Filter) {
	if f == nil {
		return
	}
	c.modify(func(includes, excludes []Filter) ([]Filter, []Filter, bool) {
		return includes, append(excludes, f), true
	})
}

// RemoveInclude removes the first include Filter identical to f and reports if one was found.
func (c *Composite) RemoveInclude(f Filter) bool {
	return c.modify(func(includes, excludes []Filter) ([]Filter, []Filter, bool) {
		includes, ok := removeFilter(includes, f)
		return includes, excludes, ok
	})
}

// RemoveExclude removes the first exclude Filter identical to f and reports if one was found.
func (c *Composite) RemoveExclude(f Filter) bool {
	return c.modify(func(includes, excludes []Filter) ([]Filter, []Filter, bool) {
		excludes, ok := removeFilter(excludes, f)
		return includes, excludes, ok
	})
}

// Includes returns a copy of the include Filters in their insertion order.
func (c *Composite) Includes() []Filter {
	return append([]Filter(nil), c.snapshot().includes...)
}

// Excludes returns a copy of the exclude Filters in their insertion order.
func (c *Composite) Excludes() []Filter {
	return append([]Filter(nil), c.snapshot().excludes...)
}

// Accept evaluates the include Filters until the first match and afterwards the exclude Filters, which might veto.
func (c *Composite) Accept(p packet.Packet) bool {
	lists := c.snapshot()
	verbose := c.verbose.Load()

	result := len(lists.includes) == 0
	for i, f := range lists.includes {
		if f.Accept(p) {
			if verbose {
				log.WithFields(log.Fields{
					"packet":  p,
					"include": i,
				}).Trace("Composite filter's include matched")
			}

			result = true
			break
		}
	}

	if !result {
		if verbose {
			log.WithField("packet", p).Trace("Composite filter rejected packet, no include matched")
		}
		return false
	}

	for i, f := range lists.excludes {
		if f.Accept(p) {
			if verbose {
				log.WithFields(log.Fields{
					"packet":  p,
					"exclude": i,
				}).Trace("Composite filter's exclude vetoed packet")
			}
			return false
		}
	}

	if verbose {
		log.WithField("packet", p).Trace("Composite filter accepted packet")
	}
	return true
}
