// Package pingwatch supervises one probe loop per monitored host. The
// Supervisor starts, pauses and bulk-stops loops on request, while every
// loop periodically probes its host and hands the outcome to a Sink.
package pingwatch

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/digineo/pingwatch/internal"
)

const (
	// DefaultInterval is the time between two probes of the same target.
	DefaultInterval = 2 * time.Second

	// DefaultStopTimeout bounds the wait for a stopped loop to terminate.
	DefaultStopTimeout = 5 * time.Second

	defaultPayloadSize = 8
)

// Prober executes single echo probes. One Prober is shared by all probe
// loops and must be safe for concurrent use.
type Prober interface {
	// NewSession returns the identifier used by a new probe loop.
	NewSession() uint16

	// Ping sends one probe and returns the measured round trip time.
	Ping(remote *net.IPAddr, session, seq uint16, payload []byte) (time.Duration, error)
}

// Supervisor manages the probe loops. The exported fields must be set
// before the first call to Start.
type Supervisor struct {
	Interval    time.Duration // time between probes of one target
	StopTimeout time.Duration // bound for awaiting a stopped loop
	PayloadSize uint16        // size of the probe payload
	Logger      log.Logger

	ctx      context.Context
	prober   Prober
	sink     Sink
	registry registry
}

// TargetInfo is a point-in-time view of a supervised target.
type TargetInfo struct {
	Host     string    `json:"host"`
	Session  uint16    `json:"session"`
	State    State     `json:"state"`
	Started  time.Time `json:"started"`
	Attempts uint64    `json:"attempts"`
}

// New creates a Supervisor. Probe loops share prober and report to sink.
// They terminate on request, or when ctx is done.
func New(ctx context.Context, prober Prober, sink Sink) *Supervisor {
	if sink == nil {
		sink = Discard
	}
	s := &Supervisor{
		Interval:    DefaultInterval,
		StopTimeout: DefaultStopTimeout,
		PayloadSize: defaultPayloadSize,
		Logger:      log.NewNopLogger(),
		ctx:         ctx,
		prober:      prober,
		sink:        sink,
	}
	s.registry.tasks = make(map[string]*task)
	return s
}

// Start spawns a probe loop for every target. Invalid and already
// running targets are reported in a BatchError, the remaining targets
// are started anyway.
func (s *Supervisor) Start(targets []string) error {
	var errs BatchError

	s.registry.Lock()
	defer s.registry.Unlock()

	if s.registry.closed {
		return ErrClosed
	}

	for _, target := range targets {
		key, addr, err := ParseTarget(target)
		if err != nil {
			errs.add(target, fmt.Errorf("%w: %w", ErrInvalidTarget, err))
			continue
		}

		t := newTask(key, addr, s.prober.NewSession())
		if !s.registry.insert(key, t) {
			errs.add(key, ErrAlreadyRunning)
			continue
		}

		go t.run(s.ctx, s.loopConfig())
		level.Info(s.Logger).Log("msg", "started task", "target", key, "session", t.session)
	}

	return errs.orNil()
}

// Pause stops the probe loops of the given targets. Each loop is
// signalled and awaited for at most StopTimeout. Failures are reported
// per target in a BatchError; other targets are unaffected.
func (s *Supervisor) Pause(targets []string) error {
	errs := make([]BatchError, len(targets))
	claims := make([]*task, len(targets))

	s.registry.Lock()
	for i, target := range targets {
		key := normalize(target)
		t, found := s.registry.remove(key)
		if !found {
			errs[i].add(key, ErrNotRunning)
			continue
		}
		claims[i] = t
	}
	s.registry.Unlock()

	s.stop(claims, errs)
	return flatten(errs)
}

// StopAllExcept stops every probe loop whose target is not listed in
// keep. Targets started concurrently after the registry was inspected
// keep running.
func (s *Supervisor) StopAllExcept(keep []string) error {
	allow := make(map[string]struct{}, len(keep))
	for _, target := range keep {
		allow[normalize(target)] = struct{}{}
	}

	s.registry.Lock()
	keys := s.registry.keysNotIn(allow)
	claims := make([]*task, len(keys))
	for i, key := range keys {
		claims[i], _ = s.registry.remove(key)
	}
	s.registry.Unlock()

	errs := make([]BatchError, len(claims))
	s.stop(claims, errs)
	return flatten(errs)
}

// Close stops all probe loops. Later calls to Start fail with ErrClosed.
func (s *Supervisor) Close() error {
	s.registry.Lock()
	s.registry.closed = true
	s.registry.Unlock()

	return s.StopAllExcept(nil)
}

// Keys returns the sorted keys of all supervised targets.
func (s *Supervisor) Keys() []string {
	s.registry.Lock()
	defer s.registry.Unlock()

	return s.registry.keysNotIn(nil)
}

// Targets returns a snapshot of all supervised targets, ordered by key.
func (s *Supervisor) Targets() []TargetInfo {
	s.registry.Lock()
	tasks := s.registry.snapshot()
	s.registry.Unlock()

	infos := make([]TargetInfo, len(tasks))
	for i, t := range tasks {
		infos[i] = TargetInfo{
			Host:     t.key,
			Session:  t.session,
			State:    State(t.state.Load()),
			Started:  t.started,
			Attempts: t.attempts.Load(),
		}
	}
	return infos
}

// stop signals the claimed tasks and awaits their termination in
// parallel. Errors are recorded at the position of the task. Claims
// must have been removed from the registry, nil claims are skipped.
func (s *Supervisor) stop(claims []*task, errs []BatchError) {
	var wg sync.WaitGroup

	for i, t := range claims {
		if t == nil {
			continue
		}

		wg.Go(func() {
			if err := t.signal(); err != nil {
				level.Warn(s.Logger).Log("msg", "unable to signal task", "target", t.key, "err", err)
				errs[i].add(t.key, err)
			}

			if err := t.wait(s.StopTimeout); err != nil {
				level.Error(s.Logger).Log("msg", "failed to stop task", "target", t.key, "err", err)
				errs[i].add(t.key, err)
				return
			}

			level.Info(s.Logger).Log("msg", "stopped task", "target", t.key)
		})
	}

	wg.Wait()
}

func (s *Supervisor) loopConfig() loopConfig {
	var payload internal.Payload
	payload.Resize(s.PayloadSize)

	return loopConfig{
		prober:   s.prober,
		sink:     s.sink,
		logger:   s.Logger,
		interval: s.Interval,
		payload:  payload,
	}
}

// flatten joins the per-position errors, keeping their order.
func flatten(errs []BatchError) error {
	var all BatchError
	for _, e := range errs {
		all = append(all, e...)
	}
	return all.orNil()
}
