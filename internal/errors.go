// Sentinel errors for the fatal conditions of spec.md §7. Every fatal
// condition is wrapped with context via fmt.Errorf("%w: ...", ...), never a
// panic, matching the teacher's idiom throughout rate_controller.go and
// config.go.

package simcore

import "errors"

var (
	// ErrProtocolViolation: scheduler returned an assignment whose task/worker
	// id is unknown, whose task is Finished, or that conflicts with a
	// non-reassigning scheduler's contract.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrGraphInvariant: cycle detected during validation, or a negative
	// size/duration, or a malformed network model parameter.
	ErrGraphInvariant = errors.New("graph invariant violation")

	// ErrDeadlock: the event heap drained while tasks remain unfinished.
	ErrDeadlock = errors.New("no events to process")

	// ErrCPUViolation: a scheduler assigned a task whose cpu demand exceeds
	// the target worker's capacity.
	ErrCPUViolation = errors.New("cpu violation")
)
