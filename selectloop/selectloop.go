// Package selectloop implements the biased select / event-loop runtime
// contract from spec.md §4.3: wait on a declaration-ordered list of
// branches, always preferring an earlier branch over a later one when
// both are ready, and repeat until a handler requests termination.
//
// The teacher (internal/websocket/hub.go, RunWithContext) hand-unrolls
// this pattern for a fixed three-tier priority (shutdown, then lifecycle
// events, then broadcast) using nested selects with a non-blocking
// default case for every tier but the last. That technique — try each
// higher-priority channel non-blocking before falling through to a
// blocking wait — is exactly what this package generalizes to an
// arbitrary, caller-declared list of branches, using reflect.Select
// where the teacher could hard-code three cases.
package selectloop

import (
	"reflect"

	"github.com/tomtom215/svcgraph/exitstatus"
)

// Outcome is what a branch handler returns after processing one value:
// either keep looping, or terminate the loop with a final status.
type Outcome struct {
	terminate bool
	status    exitstatus.ExitStatus
}

// Continue reports that the loop should keep running.
func Continue() Outcome { return Outcome{} }

// Terminate reports that the loop should exit with the given status.
func Terminate(status exitstatus.ExitStatus) Outcome {
	return Outcome{terminate: true, status: status}
}

// Branch is one declaration-ordered arm of a Loop. Construct branches
// with StreamBranch or FutureBranch; the zero value is not usable.
type Branch struct {
	ch     reflect.Value
	onRecv func(value reflect.Value, open bool) Outcome
}

// StreamBranch declares a branch over a receive-only channel. handle is
// invoked with each received value. If the channel is closed
// (exhausted), the branch synthesizes a termination report: Spurious if
// fallible is true (the "?" marker in spec.md §4.3), Clean otherwise.
func StreamBranch[V any](ch <-chan V, fallible bool, handle func(V) Outcome) Branch {
	return Branch{
		ch: reflect.ValueOf(ch),
		onRecv: func(value reflect.Value, open bool) Outcome {
			if !open {
				if fallible {
					return Terminate(exitstatus.Spurious)
				}
				return Terminate(exitstatus.Clean)
			}
			return handle(value.Interface().(V))
		},
	}
}

// FutureBranch declares a branch over a one-shot computation: fn runs
// once in the background, and handle is invoked exactly once with its
// result the first time the branch is selected. After that the branch
// never becomes ready again, matching a fused future that has already
// resolved. Use StreamBranch over a ticker channel for anything
// periodic.
func FutureBranch[V any](fn func() V, handle func(V) Outcome) Branch {
	ch := make(chan V, 1)
	go func() { ch <- fn() }()
	return StreamBranch[V](ch, false, handle)
}

// Loop is a biased select / event-loop built from an ordered list of
// branches. R is the type of the final carrier produced when a branch
// requests termination.
type Loop[R any] struct {
	branches []Branch
	finalize func(exitstatus.ExitStatus) R
}

// New constructs a Loop. finalize converts the terminating branch's
// status into the loop's final carrier (typically
// exitstatus.NewAlwaysClean or exitstatus.NewWithStatus partially
// applied to some accumulated value).
func New[R any](finalize func(exitstatus.ExitStatus) R) *Loop[R] {
	return &Loop[R]{finalize: finalize}
}

// Add appends a branch. Branches are evaluated in the order they were
// added: an earlier branch always wins a tie against a later one.
func (l *Loop[R]) Add(b Branch) *Loop[R] {
	l.branches = append(l.branches, b)
	return l
}

// Run drives the loop until a branch handler calls Terminate, then
// returns the finalized carrier.
func (l *Loop[R]) Run() R {
	cases := make([]reflect.SelectCase, len(l.branches))
	for i, b := range l.branches {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: b.ch}
	}

outer:
	for {
		// Declaration-order, non-blocking pass: prefer the first branch
		// with a value already available over anything later, even if a
		// later branch would also be ready.
		for i, b := range l.branches {
			selected := []reflect.SelectCase{cases[i], {Dir: reflect.SelectDefault}}
			chosen, value, open := reflect.Select(selected)
			if chosen != 0 {
				continue
			}
			if out := b.onRecv(value, open); out.terminate {
				return l.finalize(out.status)
			}
			continue outer
		}

		// Nothing ready; block until the first branch to become ready,
		// with Go's usual random tie-break among simultaneous arrivals.
		// This only matters when two branches become ready in the exact
		// same instant, since the very next iteration re-applies the
		// declaration-order pass above.
		chosen, value, open := reflect.Select(cases)
		if out := l.branches[chosen].onRecv(value, open); out.terminate {
			return l.finalize(out.status)
		}
	}
}
