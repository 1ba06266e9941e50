// Package monitor aggregates probe results into per-host statistics.
package monitor

import (
	"sync"

	"github.com/digineo/pingwatch"
)

const defaultHistorySize = 10

// Monitor keeps the latest results of every host it has seen. It is a
// pingwatch.Sink, and never blocks the probe loops for longer than a
// map lookup.
type Monitor struct {
	historySize int
	targets     map[string]*target // mapping from target key
	mtx         sync.RWMutex
}

// New creates a Monitor keeping historySize results per host.
func New(historySize int) *Monitor {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Monitor{
		historySize: historySize,
		targets:     make(map[string]*target),
	}
}

// Emit records a probe result.
func (m *Monitor) Emit(r pingwatch.Result) error {
	m.mtx.RLock()
	t, found := m.targets[r.Host]
	m.mtx.RUnlock()

	if !found {
		m.mtx.Lock()
		if t, found = m.targets[r.Host]; !found {
			t = newTarget(m.historySize)
			m.targets[r.Host] = t
		}
		m.mtx.Unlock()
	}

	t.add(r.RTT, r.Err, r.Time)
	return nil
}

// RemoveTarget forgets the statistics of a host.
func (m *Monitor) RemoveTarget(key string) {
	m.mtx.Lock()
	delete(m.targets, key)
	m.mtx.Unlock()
}

// Metrics computes the metrics of a single host, nil if unknown.
func (m *Monitor) Metrics(key string) *Metrics {
	m.mtx.RLock()
	t, found := m.targets[key]
	m.mtx.RUnlock()

	if !found {
		return nil
	}
	return t.metrics(false)
}

// Export calculates the metrics for each monitored target and returns it as a simple map.
func (m *Monitor) Export() map[string]*Metrics {
	return m.export(false)
}

// ExportAndClear calculates the metrics for each monitored target and
// clears the histories afterwards.
func (m *Monitor) ExportAndClear() map[string]*Metrics {
	return m.export(true)
}

func (m *Monitor) export(clear bool) map[string]*Metrics {
	result := make(map[string]*Metrics)

	m.mtx.RLock()
	defer m.mtx.RUnlock()

	for key, t := range m.targets {
		if metrics := t.metrics(clear); metrics != nil {
			result[key] = metrics
		}
	}

	return result
}
