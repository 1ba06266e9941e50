package monitor

import (
	"math"
	"slices"
	"sync"
	"time"
)

// Result stores the information about a single ping, in particular
// the round-trip time or whether the packet was lost.
type Result struct {
	RTT  time.Duration
	Lost bool
}

// History represents the ping history for a single host.
type History struct {
	results  []Result
	count    int
	position int
	lastErr  error // most recent failure within the window
	sync.RWMutex
}

// NewHistory creates a new History object with a specific capacity.
func NewHistory(capacity int) History {
	return History{
		results: make([]Result, capacity),
	}
}

// AddResult saves a ping result into the internal history.
func (h *History) AddResult(rtt time.Duration, err error) {
	h.Lock()

	h.results[h.position] = Result{RTT: rtt, Lost: err != nil}
	h.position = (h.position + 1) % len(h.results)

	if h.count < len(h.results) {
		h.count++
	}
	if err != nil {
		h.lastErr = err
	}

	h.Unlock()
}

func (h *History) clear() {
	h.count = 0
	h.position = 0
	h.lastErr = nil
}

// ComputeAndClear aggregates the result history into a single data point and clears the result set.
func (h *History) ComputeAndClear() *Metrics {
	h.Lock()
	result := h.compute()
	h.clear()
	h.Unlock()

	return result
}

// Compute aggregates the result history into a single data point.
func (h *History) Compute() *Metrics {
	h.RLock()
	defer h.RUnlock()

	return h.compute()
}

// at returns the i-th oldest result in the window.
func (h *History) at(i int) *Result {
	start := h.position - h.count
	if start < 0 {
		start += len(h.results)
	}
	return &h.results[(start+i)%len(h.results)]
}

func (h *History) compute() *Metrics {
	numTotal := h.count
	if numTotal == 0 {
		return nil
	}

	data := make([]float64, 0, numTotal)
	var best, worst, last time.Duration
	var total float64
	numFailure := 0

	for i := 0; i < numTotal; i++ {
		curr := h.at(i)
		if curr.Lost {
			numFailure++
			continue
		}

		if len(data) == 0 || curr.RTT < best {
			best = curr.RTT
		}
		if len(data) == 0 || curr.RTT > worst {
			worst = curr.RTT
		}
		last = curr.RTT
		total += float64(curr.RTT)
		data = append(data, float64(curr.RTT))
	}

	metrics := &Metrics{
		PacketsSent: numTotal,
		PacketsLost: numFailure,
		Loss:        float64(numFailure) / float64(numTotal),
		Last:        last,
		Best:        best,
		Worst:       worst,
	}
	if h.lastErr != nil {
		metrics.LastError = h.lastErr.Error()
	}

	size := len(data)
	if size == 0 {
		return metrics
	}

	mean := total / float64(size)
	var sumSquares float64
	for _, rtt := range data {
		sumSquares += math.Pow(rtt-mean, 2)
	}

	slices.Sort(data)
	if size%2 == 0 {
		metrics.Median = time.Duration((data[size/2-1] + data[size/2]) / 2)
	} else {
		metrics.Median = time.Duration(data[size/2])
	}
	metrics.Mean = time.Duration(mean)
	metrics.StdDev = time.Duration(math.Sqrt(sumSquares / float64(size)))

	return metrics
}
