package ping

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"

	"github.com/digineo/pingwatch/internal"
)

func newPinger(t *testing.T) *Pinger {
	t.Helper()
	pinger, err := New("127.0.0.1", "::1", false)
	if err != nil {
		pinger, err = New("127.0.0.1", "::1", true)
	}
	if err != nil {
		t.Skipf("unable to open ICMP sockets: %v", err)
	}
	t.Cleanup(pinger.Close)
	return pinger
}

func TestPinger(t *testing.T) {
	assert := assert.New(t)
	pinger := newPinger(t)

	for _, target := range []string{"127.0.0.1", "::1"} {
		rtt, err := pinger.PingAttempts(&net.IPAddr{IP: net.ParseIP(target)}, time.Second, 2)
		assert.NoError(err, target)
		assert.NotZero(rtt, target)
	}
}

func TestPingSession(t *testing.T) {
	pinger := newPinger(t)
	pinger.Timeout = time.Second

	session := pinger.NewSession()
	for seq := uint16(0); seq < 3; seq++ {
		rtt, err := pinger.Ping(&net.IPAddr{IP: net.ParseIP("127.0.0.1")}, session, seq, make([]byte, 8))
		require.NoError(t, err)
		assert.Positive(t, rtt)
	}
}

func TestNewSessionUnique(t *testing.T) {
	pinger := &Pinger{}
	seen := make(map[uint16]bool)
	for i := 0; i < 1000; i++ {
		s := pinger.NewSession()
		assert.False(t, seen[s], "session %d handed out twice", s)
		seen[s] = true
	}
}

func TestProcess(t *testing.T) {
	assert := assert.New(t)

	pinger := &Pinger{requests: make(map[requestKey]*request)}
	remote := net.ParseIP("192.0.2.1")
	key := requestKey{session: 3, seq: 11}
	req := &request{remote: remote, wait: make(chan struct{}), tStart: time.Now()}
	pinger.requests[key] = req

	// wrong session
	pinger.process(&icmp.Echo{Seq: 11, Data: internal.Tag(4, nil)}, nil, net.IPAddr{IP: remote}, time.Now())
	// wrong peer
	pinger.process(&icmp.Echo{Seq: 11, Data: internal.Tag(3, nil)}, nil, net.IPAddr{IP: net.ParseIP("192.0.2.2")}, time.Now())
	select {
	case <-req.wait:
		t.Fatal("request finished by foreign reply")
	default:
	}

	tRecv := req.tStart.Add(37 * time.Millisecond)
	pinger.process(&icmp.Echo{Seq: 11, Data: internal.Tag(3, nil)}, nil, net.IPAddr{IP: remote}, tRecv)
	<-req.wait
	assert.NoError(req.result)
	assert.Equal(37*time.Millisecond, req.roundTripTime())
	assert.Empty(pinger.requests)
}

func TestProcessICMPError(t *testing.T) {
	pinger := &Pinger{requests: make(map[requestKey]*request)}
	req := &request{remote: net.ParseIP("198.51.100.7"), wait: make(chan struct{})}
	pinger.requests[requestKey{session: 1, seq: 1}] = req

	icmpErr := &ICMPError{From: net.IPAddr{IP: net.ParseIP("192.0.2.254")}}
	pinger.process(&icmp.Echo{Seq: 1, Data: internal.Tag(1, nil)}, icmpErr, icmpErr.From, time.Now())

	<-req.wait
	var got *ICMPError
	assert.ErrorAs(t, req.result, &got)
}

func TestTimeoutError(t *testing.T) {
	var err net.Error = &TimeoutError{}
	assert.True(t, err.Timeout())
	assert.Equal(t, "i/o timeout", err.Error())
}
