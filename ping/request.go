package ping

import (
	"net"
	"time"
)

// requestKey correlates replies with requests.
type requestKey struct {
	session uint16
	seq     uint16
}

// A request is a currently running ICMP echo request waiting for an answer.
type request struct {
	remote net.IP
	wait   chan struct{}
	result error
	tStart time.Time // when was this packet sent
	tRecv  time.Time // when was the reply (or error) received
}

// respond is responsible for finishing this request. It takes an error
// as failure reason. It must be called at most once.
func (req *request) respond(err error, tRecv time.Time) {
	req.result = err
	req.tRecv = tRecv
	close(req.wait)
}

func (req *request) roundTripTime() time.Duration {
	return req.tRecv.Sub(req.tStart)
}
