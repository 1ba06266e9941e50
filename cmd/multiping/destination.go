package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/digineo/pingwatch"
)

type destination struct {
	host string // as given on the command line
	key  string // target key of the resolved address
}

// destinations resolves the hosts into one destination per address.
// Duplicate addresses are skipped.
func destinations(hosts []string, timeout time.Duration) ([]*destination, []error) {
	var result []*destination
	var errs []error
	seen := make(map[string]struct{})

	for _, host := range hosts {
		addrs, err := lookup(host, timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("host %s: %w", host, err))
			continue
		}
		for _, addr := range addrs {
			key, _, err := pingwatch.ParseTarget(addr)
			if err != nil {
				errs = append(errs, fmt.Errorf("host %s: %w", host, err))
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, &destination{host: host, key: key})
		}
	}
	return result, errs
}

// lookup returns the literal for an IP address, and resolves everything else.
func lookup(host string, timeout time.Duration) ([]string, error) {
	if _, _, err := pingwatch.ParseTarget(host); err == nil {
		return []string{host}, nil
	}

	ips, err := resolve(host, timeout)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, len(ips))
	for i, ip := range ips {
		addrs[i] = ip.String()
	}
	return addrs, nil
}

func resolve(addr string, timeout time.Duration) ([]net.IPAddr, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return net.DefaultResolver.LookupIPAddr(ctx, addr)
}
