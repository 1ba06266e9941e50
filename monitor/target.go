package monitor

import (
	"sync/atomic"
	"time"
)

// target collects the results of one monitored host.
type target struct {
	history  History
	lastSeen atomic.Int64 // unix nanoseconds of the latest result
}

func newTarget(historySize int) *target {
	return &target{history: NewHistory(historySize)}
}

func (t *target) add(rtt time.Duration, err error, at time.Time) {
	t.history.AddResult(rtt, err)
	t.lastSeen.Store(at.UnixNano())
}

func (t *target) metrics(clear bool) *Metrics {
	var m *Metrics
	if clear {
		m = t.history.ComputeAndClear()
	} else {
		m = t.history.Compute()
	}
	if m != nil {
		m.LastSeen = time.Unix(0, t.lastSeen.Load())
	}
	return m
}
