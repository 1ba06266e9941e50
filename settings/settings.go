// Package settings persists the list of monitored hosts.
package settings

import (
	"context"

	"github.com/digineo/pingwatch"
)

// Host is a persisted monitoring target.
type Host struct {
	Alias  string `yaml:"alias,omitempty" json:"alias,omitempty"`
	Host   string `yaml:"host" json:"host"`
	Paused bool   `yaml:"paused,omitempty" json:"paused,omitempty"`
}

// Store loads and saves the host list. A store without any saved list
// loads an empty one.
type Store interface {
	Load(ctx context.Context) ([]Host, error)
	Save(ctx context.Context, hosts []Host) error
}

// Active returns the hosts that are not paused.
func Active(hosts []Host) []string {
	var active []string
	for _, h := range hosts {
		if !h.Paused {
			active = append(active, h.Host)
		}
	}
	return active
}

// SetPaused sets the paused flag of every listed target, comparing
// normalized target keys. Targets that are not stored are appended
// unless paused is set. It returns the updated list.
func SetPaused(hosts []Host, targets []string, paused bool) []Host {
	index := make(map[string]int, len(hosts))
	for i, h := range hosts {
		key, _, err := pingwatch.ParseTarget(h.Host)
		if err != nil {
			key = h.Host
		}
		index[key] = i
	}

	for _, target := range targets {
		key, _, err := pingwatch.ParseTarget(target)
		if err != nil {
			continue
		}
		if i, found := index[key]; found {
			hosts[i].Paused = paused
			continue
		}
		if !paused {
			index[key] = len(hosts)
			hosts = append(hosts, Host{Host: key})
		}
	}
	return hosts
}

// Update loads the host list, applies fn and saves the result.
func Update(ctx context.Context, s Store, fn func([]Host) []Host) error {
	hosts, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, fn(hosts))
}
