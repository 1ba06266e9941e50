package ping

import (
	"net"
	"time"

	"github.com/digineo/pingwatch/internal"
	"golang.org/x/net/icmp"
)

// process will finish a currently running Echo Request, if the body is
// an ICMP Echo reply (or a quoted request) carrying one of our sessions.
func (pinger *Pinger) process(body *icmp.Echo, icmpError error, addr net.IPAddr, tRecv time.Time) {
	session, ok := internal.Session(body.Data)
	if !ok {
		return
	}
	key := requestKey{session: session, seq: uint16(body.Seq)}

	// search for existing running echo request
	pinger.mtx.Lock()
	req := pinger.requests[key]
	if req != nil && icmpError == nil && !req.remote.Equal(addr.IP) {
		// a reply from somebody else
		req = nil
	}
	if req != nil {
		delete(pinger.requests, key)
	}
	pinger.mtx.Unlock()

	if req == nil {
		return
	}

	req.respond(icmpError, tRecv)
}
