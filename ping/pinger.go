// Package ping sends ICMP echo requests over a pair of shared sockets.
// A single Pinger is safe for concurrent use by any number of goroutines,
// each identifying its requests by a session and a sequence number.
package ping

import (
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/digineo/pingwatch/internal"
)

var (
	log = internal.Logger

	// SetLogger allows updating the Logger. For details, see
	// "github.com/digineo/go-logwrap".Instance.SetLogger.
	SetLogger = internal.SetLogger
)

// DefaultTimeout is used by Ping when Pinger.Timeout is zero.
const DefaultTimeout = 2 * time.Second

// Pinger is a instance for ICMP echo requests
type Pinger struct {
	Timeout time.Duration // timeout per request

	conn     internal.Conn
	requests map[requestKey]*request // currently running requests
	mtx      sync.Mutex              // lock for the requests map
	sessions atomic.Uint32           // last handed out session identifier
}

// New creates a new Pinger. This will open the sockets and start the
// receiving logic. Privileged pingers use raw sockets, the others use
// datagram ICMP sockets (see net.ipv4.ping_group_range on Linux). An
// empty bind address disables the address family. You'll need to call
// Close() to cleanup.
func New(bind4, bind6 string, privileged bool) (*Pinger, error) {
	pinger := &Pinger{
		Timeout:  DefaultTimeout,
		requests: make(map[requestKey]*request),
	}
	pinger.sessions.Store(rand.Uint32())

	pinger.conn.Privileged = privileged
	pinger.conn.Receiver = pinger.process

	if err := pinger.conn.Open(bind4, bind6); err != nil {
		return nil, err
	}

	return pinger, nil
}

// Close will close the ICMP sockets.
func (pinger *Pinger) Close() {
	pinger.conn.Close()
}

// NewSession returns an identifier for a new stream of echo requests.
// Consecutive calls never return the same value until 2^16 sessions
// have been handed out.
func (pinger *Pinger) NewSession() uint16 {
	return uint16(pinger.sessions.Add(1))
}

// PingAttempts sends ICMP echo requests, retrying upto attempts times.
// Will finish early on success and return the round trip time.
func (pinger *Pinger) PingAttempts(remote *net.IPAddr, timeout time.Duration, attempts int) (rtt time.Duration, err error) {
	session := pinger.NewSession()
	var payload internal.Payload
	payload.Resize(8)

	for i := 0; i < attempts; i++ {
		if rtt, err = pinger.once(remote, session, uint16(i), payload, timeout); err == nil {
			break // success
		}
	}
	return
}
