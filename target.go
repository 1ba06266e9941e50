package pingwatch

import (
	"net"
	"net/netip"
	"strings"
)

// ParseTarget validates s as an IP address. It returns the normalized
// target key (IPv4-mapped IPv6 addresses are unmapped, IPv6 addresses
// are compressed) and the address to probe.
func ParseTarget(s string) (string, *net.IPAddr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", nil, err
	}
	addr = addr.Unmap()

	return addr.String(), &net.IPAddr{IP: addr.AsSlice(), Zone: addr.Zone()}, nil
}

// normalize returns the target key for s, or the trimmed input if s is
// not a valid address. Lookups with such keys never match a task.
func normalize(s string) string {
	if key, _, err := ParseTarget(s); err == nil {
		return key
	}
	return strings.TrimSpace(s)
}
