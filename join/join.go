// Package join implements the join primitive from spec.md §4.4:
// concurrently await N service handles (plus an optional shutdown
// trigger), and tear every peer down the moment any one of them fails
// or the shutdown fires, so a partial failure never strands a running
// service.
//
// The teacher has no generic join combinator — suture's supervision
// tree (internal/supervisor/tree.go) restarts failed services in place
// rather than tearing down siblings — so this package is grounded
// instead on original_source/macros/src/join_services.rs, which
// expands to a tokio::try_join! racing the shutdown against every
// service's exit_status(), followed by either take_output() on the
// happy path or shutdown()-then-tokio::join! on the cascade path. Go
// has no macro layer and no built-in heterogeneous tuple, so the
// racing phase here is built on selectloop (itself grounded on the
// teacher's hub.go) instead of a language primitive, and the
// homogeneous N-handle case (JoinAll) is the primary surface; Join2
// covers the heterogeneous two-handle case the macro handled via
// tuple indexing.
package join

import (
	"sync"

	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/selectloop"
	"github.com/tomtom215/svcgraph/servicehandle"
)

// JoinAll concurrently awaits every handle's exit status, racing an
// optional shutdown trigger with higher priority than any peer's
// termination. shutdown may be nil to mean "no shutdown trigger".
//
// Happy path: every handle reports Clean and shutdown never fired —
// the outputs are returned in input order with status Clean.
//
// Cascade path: any handle reports Spurious, or shutdown fires first —
// Shutdown is called on every handle, all are awaited to completion,
// and the outputs are returned with status Spurious if any handle
// reported Spurious, Clean otherwise.
func JoinAll[T exitstatus.ServiceExitStatus](shutdown <-chan struct{}, handles ...servicehandle.Handle[T]) ([]T, exitstatus.ExitStatus) {
	n := len(handles)
	statusCh := make([]chan exitstatus.ExitStatus, n)
	for i, h := range handles {
		statusCh[i] = make(chan exitstatus.ExitStatus, 1)
		go func(i int, h servicehandle.Handle[T]) {
			status, ok := h.ExitStatus()
			if !ok {
				// The handle's output was already taken out from under the
				// join, which should never happen under exclusive
				// ownership; treat it as a failure so the loop still
				// converges instead of hanging.
				status = exitstatus.Spurious
			}
			statusCh[i] <- status
		}(i, h)
	}

	cascade := false
	remaining := n

	loop := selectloop.New(func(exitstatus.ExitStatus) struct{} { return struct{}{} })
	if shutdown != nil {
		loop.Add(selectloop.StreamBranch(shutdown, false, func(struct{}) selectloop.Outcome {
			cascade = true
			return selectloop.Terminate(exitstatus.Clean)
		}))
	}
	for i := range handles {
		i := i
		loop.Add(selectloop.StreamBranch(statusCh[i], false, func(status exitstatus.ExitStatus) selectloop.Outcome {
			remaining--
			if status.IsSpurious() {
				cascade = true
			}
			if cascade || remaining == 0 {
				return selectloop.Terminate(exitstatus.Clean)
			}
			return selectloop.Continue()
		}))
	}
	if n > 0 || shutdown != nil {
		loop.Run()
	}
	// A closed shutdown channel ends its branch without calling the
	// handler above, so a loop that stopped with peers still running was
	// stopped by the shutdown trigger.
	if remaining > 0 {
		cascade = true
	}

	if cascade {
		for _, h := range handles {
			h.Shutdown()
		}
	}
	return collectAll(handles)
}

func collectAll[T exitstatus.ServiceExitStatus](handles []servicehandle.Handle[T]) ([]T, exitstatus.ExitStatus) {
	n := len(handles)
	outputs := make([]T, n)
	statuses := make([]exitstatus.ExitStatus, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i, h := range handles {
		i, h := i, h
		go func() {
			defer wg.Done()
			status, _ := h.ExitStatus()
			out, _ := h.TakeOutput()
			statuses[i] = status
			outputs[i] = out
		}()
	}
	wg.Wait()

	return outputs, exitstatus.Aggregate(statuses...)
}

// Join2 is the two-handle heterogeneous form of JoinAll, for services
// whose output types differ.
func Join2[A, B exitstatus.ServiceExitStatus](shutdown <-chan struct{}, a servicehandle.Handle[A], b servicehandle.Handle[B]) (A, B, exitstatus.ExitStatus) {
	chA := watch(a)
	chB := watch(b)

	cascade := false
	loop := selectloop.New(func(exitstatus.ExitStatus) struct{} { return struct{}{} })
	if shutdown != nil {
		loop.Add(selectloop.StreamBranch(shutdown, false, func(struct{}) selectloop.Outcome {
			cascade = true
			return selectloop.Terminate(exitstatus.Clean)
		}))
	}
	remaining := 2
	settle := func(status exitstatus.ExitStatus) selectloop.Outcome {
		remaining--
		if status.IsSpurious() {
			cascade = true
		}
		if cascade || remaining == 0 {
			return selectloop.Terminate(exitstatus.Clean)
		}
		return selectloop.Continue()
	}
	loop.Add(selectloop.StreamBranch(chA, false, func(status exitstatus.ExitStatus) selectloop.Outcome { return settle(status) }))
	loop.Add(selectloop.StreamBranch(chB, false, func(status exitstatus.ExitStatus) selectloop.Outcome { return settle(status) }))
	loop.Run()
	// As in JoinAll: a closed shutdown channel stops the loop without
	// calling its handler.
	if remaining > 0 {
		cascade = true
	}

	if cascade {
		a.Shutdown()
		b.Shutdown()
	}

	statusA, _ := a.ExitStatus()
	valA, _ := a.TakeOutput()
	statusB, _ := b.ExitStatus()
	valB, _ := b.TakeOutput()
	return valA, valB, exitstatus.Aggregate(statusA, statusB)
}

// watch spawns a goroutine that drives h to completion and reports its
// status on the returned channel, for use as a selectloop branch.
func watch[T exitstatus.ServiceExitStatus](h servicehandle.Handle[T]) chan exitstatus.ExitStatus {
	ch := make(chan exitstatus.ExitStatus, 1)
	go func() {
		status, ok := h.ExitStatus()
		if !ok {
			status = exitstatus.Spurious
		}
		ch <- status
	}()
	return ch
}
