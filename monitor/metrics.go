package monitor

import "time"

// Metrics is a dumb data point computed from a history of Results.
type Metrics struct {
	PacketsSent int           `json:"packetsSent"` // number of packets sent
	PacketsLost int           `json:"packetsLost"` // number of packets lost
	Loss        float64       `json:"loss"`        // ratio of lost packets, 0..1
	Last        time.Duration `json:"last"`        // rtt of the latest reply
	Best        time.Duration `json:"best"`        // best rtt
	Worst       time.Duration `json:"worst"`       // worst rtt
	Median      time.Duration `json:"median"`      // median rtt
	Mean        time.Duration `json:"mean"`        // mean rtt
	StdDev      time.Duration `json:"stdDev"`      // std deviation
	LastError   string        `json:"lastError,omitempty"`
	LastSeen    time.Time     `json:"lastSeen"`
}
