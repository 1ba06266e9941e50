package ping

import (
	"errors"

	"github.com/digineo/pingwatch/internal"
)

// ICMPError is returned when an echo request is answered with an ICMP
// error message, e.g. destination unreachable.
type ICMPError = internal.ICMPError

var errDuplicate = errors.New("request with same session and sequence in flight")

// TimeoutError implements the net.Error interface. Originally taken from
// https://github.com/golang/go/blob/release-branch.go1.8/src/net/net.go#L505-L509
type TimeoutError struct{}

func (e *TimeoutError) Error() string   { return "i/o timeout" }
func (e *TimeoutError) Timeout() bool   { return true }
func (e *TimeoutError) Temporary() bool { return true }
