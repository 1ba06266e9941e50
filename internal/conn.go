package internal

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// ProtocolICMP is the number of the Internet Control Message Protocol
	// (see golang.org/x/net/internal/iana.ProtocolICMP)
	ProtocolICMP = 1

	// ProtocolICMPv6 is the IPv6 Next Header value for ICMPv6
	// see golang.org/x/net/internal/iana.ProtocolIPv6ICMP
	ProtocolICMPv6 = 58
)

var (
	ErrNotBound      = errors.New("need at least one bind address")
	ErrSocketMissing = errors.New("socket missing")
	id               = os.Getpid() & 0xffff
)

// ICMPError is reported for an echo request answered by an ICMP error
// message instead of an echo reply.
type ICMPError struct {
	Type icmp.Type  // e.g. ipv4.ICMPTypeDestinationUnreachable
	Code int        // message code
	From net.IPAddr // address of the reporting node
}

func (e *ICMPError) Error() string {
	return fmt.Sprintf("%v (code %d) from %s", e.Type, e.Code, e.From.String())
}

// Receiver is invoked for every echo reply or ICMP error message quoting
// one of our echo requests. icmpError is non-nil for error messages.
type Receiver func(body *icmp.Echo, icmpError error, addr net.IPAddr, tRecv time.Time)

// Conn wraps an IPv4 and an IPv6 ICMP socket.
type Conn struct {
	Receiver   Receiver
	Privileged bool

	conn4 net.PacketConn
	conn6 net.PacketConn
	wg    sync.WaitGroup
}

// Open opens the sockets and starts the receiving goroutines. An empty
// bind address skips the respective address family. You'll need to call
// Close() to cleanup.
func (c *Conn) Open(bind4, bind6 string) error {
	var err error
	var network4, network6 string

	if c.Privileged {
		network4 = "ip4:icmp"
		network6 = "ip6:ipv6-icmp"
	} else {
		network4 = "udp4"
		network6 = "udp6"
	}

	c.conn4, err = connectICMP(network4, bind4)
	if err != nil {
		return err
	}

	c.conn6, err = connectICMP(network6, bind6)
	if err != nil {
		if c.conn4 != nil {
			c.conn4.Close()
		}
		return err
	}

	if c.conn4 == nil && c.conn6 == nil {
		return ErrNotBound
	}

	if c.conn4 != nil {
		c.wg.Add(1)
		go c.receiver(ProtocolICMP, c.conn4)
	}
	if c.conn6 != nil {
		c.wg.Add(1)
		go c.receiver(ProtocolICMPv6, c.conn6)
	}

	return nil
}

// Close closes the sockets and waits for the receivers to finish.
func (c *Conn) Close() {
	if c.conn4 != nil {
		c.conn4.Close()
	}
	if c.conn6 != nil {
		c.conn6.Close()
	}
	c.wg.Wait()
}

// receiver listens on the socket and hands every parsed message to receive.
func (c *Conn) receiver(proto int, conn net.PacketConn) {
	defer c.wg.Done()
	rb := make([]byte, 1500)

	for {
		n, source, err := conn.ReadFrom(rb)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if !errors.Is(err, net.ErrClosed) {
				Logger.Errorf("icmp receiver stopped: %v", err)
			}
			return
		}

		var ipAddr net.IPAddr
		switch addr := source.(type) {
		case *net.UDPAddr:
			ipAddr.IP = addr.IP
			ipAddr.Zone = addr.Zone
		case *net.IPAddr:
			ipAddr = *addr
		}

		c.receive(proto, rb[:n], ipAddr, time.Now())
	}
}

// receive takes the raw message and tries to evaluate an ICMP response.
func (c *Conn) receive(proto int, bytes []byte, addr net.IPAddr, t time.Time) {
	m, err := icmp.ParseMessage(proto, bytes)
	if err != nil {
		return
	}

	switch m.Type {
	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
		if echo, ok := m.Body.(*icmp.Echo); ok && echo != nil {
			c.Receiver(echo, nil, addr, t)
		}

	case ipv4.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeDestinationUnreachable:
		if body, ok := m.Body.(*icmp.DstUnreach); ok && body != nil {
			c.quoted(proto, m, body.Data, addr, t)
		}

	case ipv4.ICMPTypeTimeExceeded, ipv6.ICMPTypeTimeExceeded:
		if body, ok := m.Body.(*icmp.TimeExceeded); ok && body != nil {
			c.quoted(proto, m, body.Data, addr, t)
		}
	}
}

// quoted evaluates the original packet quoted by an ICMP error message and
// reports the error to the Receiver if it quotes an echo request.
func (c *Conn) quoted(proto int, m *icmp.Message, data []byte, addr net.IPAddr, t time.Time) {
	var bodyData []byte
	switch proto {
	case ProtocolICMP:
		hdr, err := ipv4.ParseHeader(data)
		if err != nil || len(data) < hdr.Len {
			return
		}
		bodyData = data[hdr.Len:]
	case ProtocolICMPv6:
		// the header itself is not needed, but parsing detects truncation
		if _, err := ipv6.ParseHeader(data); err != nil || len(data) < ipv6.HeaderLen {
			return
		}
		bodyData = data[ipv6.HeaderLen:]
	default:
		return
	}

	// quoted requests are parsed with their own type numbers
	msg, err := icmp.ParseMessage(proto, bodyData)
	if err != nil {
		return
	}

	echo, ok := msg.Body.(*icmp.Echo)
	if !ok || echo == nil {
		Logger.Infof("expected *icmp.Echo, got %#v", msg)
		return
	}

	c.Receiver(echo, &ICMPError{Type: m.Type, Code: m.Code, From: addr}, addr, t)
}

// WriteTo marshals the payload into an echo request and sends it.
func (c *Conn) WriteTo(addr *net.IPAddr, seq int, data []byte) error {
	echo := icmp.Echo{
		Seq:  seq,
		Data: data,
	}
	msg := icmp.Message{
		Code: 0,
		Body: &echo,
	}

	var conn net.PacketConn
	if addr.IP.To4() != nil {
		msg.Type = ipv4.ICMPTypeEcho
		conn = c.conn4
	} else {
		msg.Type = ipv6.ICMPTypeEchoRequest
		conn = c.conn6
	}

	if c.Privileged {
		echo.ID = id
	}

	if conn == nil {
		return ErrSocketMissing
	}

	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	if c.Privileged {
		_, err = conn.WriteTo(wb, addr)
	} else {
		_, err = conn.WriteTo(wb, &net.UDPAddr{
			IP:   addr.IP,
			Zone: addr.Zone,
		})
	}

	return err
}

// connectICMP opens a new ICMP connection, if network and address are not empty.
func connectICMP(network, address string) (net.PacketConn, error) {
	if network == "" || address == "" {
		return nil, nil
	}

	conn, err := icmp.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
