// Package servicehandle implements the ServiceHandle state machine from
// spec.md §3/§4.2: Running → OutputHeld → OutputTaken, extending
// taskhandle's contract with graceful shutdown, status reporting, and a
// one-shot output take.
package servicehandle

import (
	"context"
	"sync"

	"github.com/tomtom215/svcgraph/exitstatus"
)

// Handle is the owner-side view of a service: it can be asked to shut
// down, its exit status can be observed (driving it to completion), and
// its output can be taken exactly once.
type Handle[T exitstatus.ServiceExitStatus] interface {
	// Shutdown requests graceful termination. Idempotent.
	Shutdown()
	// ExitStatus drives the task to completion if still running, caches
	// the output, and returns its status. The second return is false iff
	// the output has already been taken.
	ExitStatus() (exitstatus.ExitStatus, bool)
	// TakeOutput returns the cached output exactly once after completion.
	// The second return is false if still running or already taken.
	TakeOutput() (T, bool)
	// Wait behaves like awaiting a future: it yields the output once
	// (whether or not ExitStatus already cached it) and then panics on
	// any later call.
	Wait() T
}

type outcome[T any] struct {
	value T
	panic any
}

func runCatchingPanic[T any](fn func() T) (out outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out.panic = r
		}
	}()
	out.value = fn()
	return out
}

func deliver[T any](out outcome[T]) T {
	if out.panic != nil {
		panic(out.panic)
	}
	return out.value
}

// shared holds the state machine common to both variants: the
// eagerly-started computation, its cached outcome, and the
// held/taken bookkeeping. start is invoked once at construction time
// (both constructors spawn their goroutine immediately, matching the
// original's CancellableServiceHandle/SignallableServiceHandle, which
// always wrap an already-spawned task) and once more, idempotently,
// the first time await() runs from ExitStatus or Wait.
type shared[T exitstatus.ServiceExitStatus] struct {
	mu         sync.Mutex
	started    bool
	once       sync.Once
	resultCh   chan outcome[T]
	ready      chan struct{}
	cached     outcome[T]
	haveOutput bool
	taken      bool
	start      func()
	// receive produces the awaited outcome. The default blocks on
	// resultCh alone; NewCancellable overrides it to race resultCh
	// against ctx.Done() so a cancellation observed at any point up to
	// and including the moment of awaiting still yields T's zero value,
	// rather than only the narrow window before fn was ever invoked.
	receive func() outcome[T]
}

func newShared[T exitstatus.ServiceExitStatus]() *shared[T] {
	s := &shared[T]{
		resultCh: make(chan outcome[T], 1),
		ready:    make(chan struct{}),
	}
	s.receive = func() outcome[T] { return <-s.resultCh }
	return s
}

func (s *shared[T]) await() outcome[T] {
	s.once.Do(func() {
		s.start()
		out := s.receive()
		s.mu.Lock()
		s.cached = out
		s.mu.Unlock()
		close(s.ready)
	})
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

func (s *shared[T]) exitStatus() (exitstatus.ExitStatus, bool) {
	s.mu.Lock()
	if s.taken {
		s.mu.Unlock()
		var zero exitstatus.ExitStatus
		return zero, false
	}
	if s.haveOutput {
		status := s.cached.value.ExitStatus()
		s.mu.Unlock()
		return status, true
	}
	s.mu.Unlock()

	out := deliver(s.await())
	s.mu.Lock()
	if !s.haveOutput && !s.taken {
		s.haveOutput = true
	}
	s.mu.Unlock()
	return out.ExitStatus(), true
}

func (s *shared[T]) takeOutput() (T, bool) {
	s.mu.Lock()
	if s.taken {
		s.mu.Unlock()
		var zero T
		return zero, false
	}
	if s.haveOutput {
		s.taken = true
		out := s.cached.value
		s.mu.Unlock()
		return out, true
	}
	s.mu.Unlock()

	// No prior ExitStatus/Wait call has driven this to completion yet:
	// the service still counts as running.
	var zero T
	return zero, false
}

func (s *shared[T]) wait() T {
	s.mu.Lock()
	if s.taken {
		s.mu.Unlock()
		panic("servicehandle: Wait called after output was already taken")
	}
	if s.haveOutput {
		s.taken = true
		out := s.cached.value
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	out := deliver(s.await())
	s.mu.Lock()
	s.taken = true
	s.mu.Unlock()
	return out
}

// cancellableHandle backs NewCancellable. Shutdown hard-cancels the
// computation; the awaited result is T's zero value regardless of what
// the computation returned mid-flight.
type cancellableHandle[T exitstatus.ServiceExitStatus] struct {
	*shared[T]
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancellable constructs a ServiceHandle whose Shutdown hard-cancels
// fn's context; the eventual output is T's zero value (spec.md §4.2's
// cancellation-to-default rule).
func NewCancellable[T exitstatus.ServiceExitStatus](parent context.Context, fn func(context.Context) T) Handle[T] {
	ctx, cancel := context.WithCancel(parent)
	h := &cancellableHandle[T]{shared: newShared[T](), ctx: ctx, cancel: cancel}
	h.shared.start = func() {
		h.mu.Lock()
		if h.started {
			h.mu.Unlock()
			return
		}
		h.started = true
		h.mu.Unlock()
		go func() {
			h.resultCh <- runCatchingPanic(func() T { return fn(h.ctx) })
		}()
	}
	// Races the computation's result against cancellation at the moment
	// of awaiting, mirroring taskhandle's cancellableHandle.Wait: a
	// cancellation observed here wins and substitutes T's zero value,
	// checking resultCh non-blockingly only to let a genuine panic that
	// arrived in the same instant still surface.
	h.shared.receive = func() outcome[T] {
		select {
		case <-ctx.Done():
			select {
			case out := <-h.resultCh:
				if out.panic != nil {
					return out
				}
			default:
			}
			var zero T
			return outcome[T]{value: zero}
		case out := <-h.resultCh:
			return out
		}
	}
	h.shared.start()
	return h
}

// Shutdown hard-cancels the computation. It does not wait for
// confirmation; the zero-value substitution happens when the caller next
// observes ExitStatus/Wait.
func (h *cancellableHandle[T]) Shutdown() {
	h.cancel()
}

// ExitStatus drives the computation to completion, caches the output, and
// returns its status.
func (h *cancellableHandle[T]) ExitStatus() (exitstatus.ExitStatus, bool) {
	return h.shared.exitStatus()
}

// TakeOutput returns the cached output exactly once.
func (h *cancellableHandle[T]) TakeOutput() (T, bool) {
	return h.shared.takeOutput()
}

// Wait yields the output once, then panics on any later call.
func (h *cancellableHandle[T]) Wait() T {
	return h.shared.wait()
}

// signallableHandle backs NewSignallable. Shutdown closes a one-shot
// channel that fn must itself observe and terminate in response to; the
// awaited result is whatever fn returns.
type signallableHandle[T exitstatus.ServiceExitStatus] struct {
	*shared[T]
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewSignallable constructs a ServiceHandle whose Shutdown asks fn to
// terminate gracefully via the receive-only channel it is given.
func NewSignallable[T exitstatus.ServiceExitStatus](fn func(shutdown <-chan struct{}) T) Handle[T] {
	h := &signallableHandle[T]{shared: newShared[T](), shutdownCh: make(chan struct{})}
	h.shared.start = func() {
		h.mu.Lock()
		if h.started {
			h.mu.Unlock()
			return
		}
		h.started = true
		h.mu.Unlock()
		go func() {
			h.resultCh <- runCatchingPanic(func() T { return fn(h.shutdownCh) })
		}()
	}
	h.shared.start()
	return h
}

// Shutdown closes the internal shutdown trigger exactly once.
func (h *signallableHandle[T]) Shutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdownCh) })
}

// ExitStatus drives the computation to completion, caches the output, and
// returns its status.
func (h *signallableHandle[T]) ExitStatus() (exitstatus.ExitStatus, bool) {
	return h.shared.exitStatus()
}

// TakeOutput returns the cached output exactly once.
func (h *signallableHandle[T]) TakeOutput() (T, bool) {
	return h.shared.takeOutput()
}

// Wait yields the output once, then panics on any later call.
func (h *signallableHandle[T]) Wait() T {
	return h.shared.wait()
}
