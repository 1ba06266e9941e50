package pingwatch

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// State is the lifecycle state of a probe loop.
type State int32

const (
	Running State = iota
	Terminating
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// MarshalText encodes s by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// task is the registry entry of one probe loop.
type task struct {
	key     string
	addr    *net.IPAddr
	session uint16
	started time.Time

	stop chan struct{} // shutdown signal, one slot
	done chan struct{} // closed when the loop has terminated
	err  error         // why the loop terminated abnormally, valid after done

	state    atomic.Int32
	attempts atomic.Uint64
}

// loopConfig is copied from the Supervisor when the loop is spawned.
type loopConfig struct {
	prober   Prober
	sink     Sink
	logger   log.Logger
	interval time.Duration
	payload  []byte
}

func newTask(key string, addr *net.IPAddr, session uint16) *task {
	return &task{
		key:     key,
		addr:    addr,
		session: session,
		started: time.Now(),
		stop:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// signal requests the loop to terminate.
func (t *task) signal() error {
	select {
	case <-t.done:
		return fmt.Errorf("%w: loop already exited", ErrSignal)
	default:
	}

	select {
	case t.stop <- struct{}{}:
		return nil
	default:
		return fmt.Errorf("%w: signal already pending", ErrSignal)
	}
}

// wait blocks until the loop has terminated, at most for timeout.
func (t *task) wait(timeout time.Duration) error {
	select {
	case <-t.done:
		return t.err
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return t.err
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrStopTimeout, timeout)
	}
}

// shutdown reports whether the loop has to terminate. A pending shutdown
// signal always wins over a concurrently elapsed timer.
func (t *task) shutdown(ctx context.Context) bool {
	select {
	case <-t.stop:
		t.state.Store(int32(Terminating))
		return true
	default:
	}
	return ctx.Err() != nil
}

// run is the probe loop. It waits for the interval to elapse or for the
// shutdown signal, whichever comes first, and emits one Result per probe.
func (t *task) run(ctx context.Context, cfg loopConfig) {
	logger := log.With(cfg.logger, "target", t.key, "session", t.session)

	defer close(t.done)
	defer t.state.Store(int32(Terminated))
	defer func() {
		if r := recover(); r != nil {
			t.err = fmt.Errorf("%w: %v", ErrAbnormalExit, r)
			level.Error(logger).Log("msg", "probe loop panicked", "panic", r)
		}
	}()

	timer := time.NewTimer(cfg.interval)
	defer timer.Stop()

	var seq uint16
	for {
		select {
		case <-t.stop:
			t.state.Store(int32(Terminating))
			level.Debug(logger).Log("msg", "received shutdown signal")
			return
		case <-ctx.Done():
			level.Debug(logger).Log("msg", "context done", "err", ctx.Err())
			return
		case <-timer.C:
		}

		if t.shutdown(ctx) {
			return
		}

		result := t.probe(cfg, seq)

		if t.shutdown(ctx) {
			// the caller has been told we are gone
			level.Debug(logger).Log("msg", "dropping result of stopped loop", "seq", seq)
			return
		}

		if err := cfg.sink.Emit(result); err != nil {
			level.Warn(logger).Log("msg", "unable to emit result", "seq", seq, "err", err)
		}

		seq++ // wraps around
		timer.Reset(cfg.interval)
	}
}

func (t *task) probe(cfg loopConfig, seq uint16) Result {
	rtt, err := cfg.prober.Ping(t.addr, t.session, seq, cfg.payload)
	t.attempts.Add(1)

	result := Result{
		Host: t.key,
		Seq:  seq,
		Time: time.Now(),
		RTT:  rtt,
		Err:  err,
	}
	if err != nil {
		result.RTT = 0
	}
	return result
}
