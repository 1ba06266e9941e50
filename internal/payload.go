package internal

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/digineo/go-logwrap"
)

var (
	Logger = &logwrap.Instance{}

	// SetLogger allows updating the Logger. For details, see
	// "github.com/digineo/go-logwrap".Instance.SetLogger.
	SetLogger = Logger.SetLogger
)

// sessionTagLen is the number of leading payload bytes carrying the session.
const sessionTagLen = 2

// Payload represents additional data appended to outgoing ICMP Echo
// Requests.
type Payload []byte

// Resize will assign a new random payload of the given size to p.
func (p *Payload) Resize(size uint16) {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(rand.Uint32())
	}
	*p = Payload(buf)
}

// Tag prefixes data with the session identifier. Unprivileged sockets let
// the kernel rewrite the echo identifier, so replies are correlated by the
// tag they carry back.
func Tag(session uint16, data []byte) []byte {
	buf := make([]byte, sessionTagLen+len(data))
	binary.BigEndian.PutUint16(buf, session)
	copy(buf[sessionTagLen:], data)
	return buf
}

// Session extracts the session identifier from a tagged payload.
func Session(data []byte) (uint16, bool) {
	if len(data) < sessionTagLen {
		return 0, false
	}
	return binary.BigEndian.Uint16(data), true
}
