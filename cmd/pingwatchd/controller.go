package main

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/monitor"
	"github.com/digineo/pingwatch/settings"
)

const persistTimeout = 5 * time.Second

// controller keeps the stored paused flags and the statistics in line
// with the control operations applied to the supervisor.
type controller struct {
	*pingwatch.Supervisor
	store  settings.Store
	stats  *monitor.Monitor
	logger log.Logger
	mtx    sync.Mutex // serializes read-modify-write of the settings
}

func newController(sup *pingwatch.Supervisor, store settings.Store, stats *monitor.Monitor, logger log.Logger) *controller {
	return &controller{
		Supervisor: sup,
		store:      store,
		stats:      stats,
		logger:     log.WithPrefix(logger, "component", "controller"),
	}
}

// boot starts every stored host that is not paused. Hosts that cannot
// be started are logged and skipped.
func (c *controller) boot(ctx context.Context) error {
	hosts, err := c.store.Load(ctx)
	if err != nil {
		return err
	}

	active := settings.Active(hosts)
	if err := c.Supervisor.Start(active); err != nil {
		level.Warn(c.logger).Log("msg", "some stored hosts were not started", "err", err)
	}
	level.Info(c.logger).Log("msg", "started stored hosts", "hosts", len(hosts), "active", len(active))
	return nil
}

// Start starts the targets and marks them as active.
func (c *controller) Start(targets []string) error {
	err := c.Supervisor.Start(targets)
	c.persist(func(hosts []settings.Host) []settings.Host {
		return settings.SetPaused(hosts, targets, false)
	})
	return err
}

// Pause pauses the targets, marks them as paused and drops their
// statistics.
func (c *controller) Pause(targets []string) error {
	err := c.Supervisor.Pause(targets)
	for _, target := range targets {
		if key, _, perr := pingwatch.ParseTarget(target); perr == nil {
			c.stats.RemoveTarget(key)
		}
	}
	c.persist(func(hosts []settings.Host) []settings.Host {
		return settings.SetPaused(hosts, targets, true)
	})
	return err
}

// StopAllExcept stops and pauses everything not listed in keep.
func (c *controller) StopAllExcept(keep []string) error {
	allow := make(map[string]struct{}, len(keep))
	for _, target := range keep {
		if key, _, err := pingwatch.ParseTarget(target); err == nil {
			allow[key] = struct{}{}
		}
	}

	err := c.Supervisor.StopAllExcept(keep)
	for key := range c.stats.Export() {
		if _, found := allow[key]; !found {
			c.stats.RemoveTarget(key)
		}
	}
	c.persist(func(hosts []settings.Host) []settings.Host {
		var stopped []string
		for _, h := range hosts {
			key, _, err := pingwatch.ParseTarget(h.Host)
			if err != nil {
				continue
			}
			if _, found := allow[key]; !found {
				stopped = append(stopped, key)
			}
		}
		return settings.SetPaused(hosts, stopped, true)
	})
	return err
}

// persist applies fn to the stored host list. Failures are only logged,
// the supervisor already applied the operation.
func (c *controller) persist(fn func([]settings.Host) []settings.Host) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := settings.Update(ctx, c.store, fn); err != nil {
		level.Error(c.logger).Log("msg", "failed to save settings", "err", err)
	}
}
