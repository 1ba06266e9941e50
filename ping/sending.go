package ping

import (
	"net"
	"time"

	"github.com/digineo/pingwatch/internal"
)

// Ping sends a single echo request, identified by session and seq, and
// waits for the reply. It returns the round trip time if a reply is
// received within Pinger.Timeout.
func (pinger *Pinger) Ping(remote *net.IPAddr, session, seq uint16, payload []byte) (time.Duration, error) {
	timeout := pinger.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return pinger.once(remote, session, seq, payload, timeout)
}

// once sends a single Echo Request and waits for an answer.
func (pinger *Pinger) once(remote *net.IPAddr, session, seq uint16, payload []byte, timeout time.Duration) (time.Duration, error) {
	key := requestKey{session: session, seq: seq}
	req := &request{
		remote: remote.IP,
		wait:   make(chan struct{}),
	}

	// enqueue in currently running requests
	pinger.mtx.Lock()
	if _, exists := pinger.requests[key]; exists {
		pinger.mtx.Unlock()
		return 0, errDuplicate
	}
	pinger.requests[key] = req
	pinger.mtx.Unlock()

	defer pinger.dequeue(key)

	// start measurement (tRecv is set in the receiving end)
	req.tStart = time.Now()

	if err := pinger.conn.WriteTo(remote, int(seq), internal.Tag(session, payload)); err != nil {
		log.Errorf("unable to write to %v: %v", remote, err)
		return 0, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-req.wait:
		if req.result != nil {
			return 0, req.result
		}
		return req.roundTripTime(), nil
	case <-timer.C:
		return 0, &TimeoutError{}
	}
}

func (pinger *Pinger) dequeue(key requestKey) {
	pinger.mtx.Lock()
	delete(pinger.requests, key)
	pinger.mtx.Unlock()
}
