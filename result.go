package pingwatch

import (
	"encoding/json"
	"errors"
	"time"
)

// EventName is the name under which results are published to subscribers.
const EventName = "ping-result"

// StatusSuccess is the status of a successful probe.
const StatusSuccess = "success"

// Result is the outcome of a single probe attempt.
type Result struct {
	Host string        // target key
	Seq  uint16        // attempt sequence number within the probe loop
	Time time.Time     // when the attempt finished
	RTT  time.Duration // round trip time, zero on failure
	Err  error         // failure reason, nil on success
}

// Status returns "success" or "error: <reason>".
func (r Result) Status() string {
	if r.Err == nil {
		return StatusSuccess
	}
	return "error: " + r.Err.Error()
}

// Event is the external representation of a Result.
type Event struct {
	Host      string `json:"host"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
	Duration  int64  `json:"duration"`  // milliseconds, 0 on failure
	Status    string `json:"status"`
}

// Event converts r into its external representation.
func (r Result) Event() Event {
	ev := Event{
		Host:      r.Host,
		Timestamp: r.Time.UnixMilli(),
		Status:    r.Status(),
	}
	if r.Err == nil {
		ev.Duration = r.RTT.Milliseconds()
	}
	return ev
}

// MarshalJSON encodes r as Event.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Event())
}

// Sink receives a Result for every probe attempt. Emit is called from
// the probe loops and must not block; returned errors are logged.
type Sink interface {
	Emit(Result) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(Result) error

// Emit calls f(r).
func (f SinkFunc) Emit(r Result) error {
	return f(r)
}

// Tee emits every result to all of its sinks.
type Tee []Sink

// Emit forwards r to each sink and joins their errors.
func (t Tee) Emit(r Result) error {
	var errs []error
	for _, sink := range t {
		if err := sink.Emit(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Sink dropping all results.
var Discard Sink = SinkFunc(func(Result) error { return nil })
