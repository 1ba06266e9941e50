package pingwatch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTarget is reported for targets which are no IP address.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrAlreadyRunning is reported when starting a target twice.
	ErrAlreadyRunning = errors.New("task already running")

	// ErrNotRunning is reported when stopping a target without task.
	ErrNotRunning = errors.New("no task found")

	// ErrSignal is reported when the shutdown signal could not be delivered.
	ErrSignal = errors.New("failed to send shutdown signal")

	// ErrStopTimeout is reported when a probe loop did not confirm its
	// termination in time. The task is gone from the registry anyway.
	ErrStopTimeout = errors.New("timed out waiting for termination")

	// ErrAbnormalExit is reported for probe loops ended by a panic.
	ErrAbnormalExit = errors.New("task terminated abnormally")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("supervisor closed")
)

// TargetError describes the failure of an operation for a single target.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("target %s: %v", e.Target, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// BatchError collects the per-target failures of one control operation.
// Targets not listed have been processed successfully.
type BatchError []*TargetError

func (e BatchError) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap allows errors.Is and errors.As to inspect the members.
func (e BatchError) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// Targets lists the failed targets, in order of their errors.
func (e BatchError) Targets() []string {
	var targets []string
	for _, err := range e {
		if len(targets) == 0 || targets[len(targets)-1] != err.Target {
			targets = append(targets, err.Target)
		}
	}
	return targets
}

func (e *BatchError) add(target string, err error) {
	*e = append(*e, &TargetError{Target: target, Err: err})
}

// orNil avoids returning a typed nil.
func (e BatchError) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
