// Package metrics holds in-process counters reported by the bridge.
package metrics

import (
	"sync"
	"sync/atomic"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// Registry is a set of counters keyed by family and label, such as
// ("checkout_outcomes", "succeeded").
type Registry struct {
	mu       sync.RWMutex
	families map[string]map[string]*Counter
}

func NewRegistry() *Registry {
	return &Registry{families: make(map[string]map[string]*Counter)}
}

// Counter returns the counter for family and label, creating it on first use.
func (r *Registry) Counter(family, label string) *Counter {
	r.mu.RLock()
	c, ok := r.families[family][label]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	labels, ok := r.families[family]
	if !ok {
		labels = make(map[string]*Counter)
		r.families[family] = labels
	}
	if c, ok = labels[label]; !ok {
		c = &Counter{}
		labels[label] = c
	}
	return c
}

// Snapshot copies the current values.
func (r *Registry) Snapshot() map[string]map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]uint64, len(r.families))
	for family, labels := range r.families {
		vals := make(map[string]uint64, len(labels))
		for label, c := range labels {
			vals[label] = c.Load()
		}
		out[family] = vals
	}
	return out
}
