package robustservice

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/servicehandle"
)

// countingOutput is the WithStatus[int] factory output: a trivial
// inner service that runs until canceled and reports how many times it
// was constructed via a shared counter.
type countingOutput = exitstatus.WithStatus[int]

func runUntilCanceled(ctx context.Context, n int) countingOutput {
	<-ctx.Done()
	return exitstatus.NewWithStatus(n, exitstatus.Clean)
}

// countingFactory ignores the construction-phase ctx for the produced
// handle's own lifecycle (per Factory's contract, that ctx only bounds
// construction itself, which here is instantaneous) and instead gives
// the handle its own independent context, cancelled only by its
// Shutdown call.
func countingFactory(counter *int) Factory[countingOutput] {
	return func(context.Context) (servicehandle.Handle[countingOutput], bool) {
		*counter++
		n := *counter
		return servicehandle.NewCancellable(context.Background(), func(ctx context.Context) countingOutput {
			return runUntilCanceled(ctx, n)
		}), true
	}
}

func TestRunShutsDownOnExternalSignal(t *testing.T) {
	var constructions int
	shutdown := make(chan struct{})

	done := make(chan exitstatus.AlwaysClean[struct{}], 1)
	go func() {
		done <- Run(Config[countingOutput]{
			Factory:  countingFactory(&constructions),
			Shutdown: shutdown,
		})
	}()

	time.Sleep(20 * time.Millisecond)
	close(shutdown)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
	if constructions != 1 {
		t.Fatalf("expected exactly one construction, got %d", constructions)
	}
}

// flakyFactory builds an inner service that exits immediately Spurious
// the first N times, then runs until canceled.
func flakyFactory(failures int, constructions *int) Factory[countingOutput] {
	return func(context.Context) (servicehandle.Handle[countingOutput], bool) {
		*constructions++
		attempt := *constructions
		return servicehandle.NewCancellable(context.Background(), func(ctx context.Context) countingOutput {
			if attempt <= failures {
				return exitstatus.NewWithStatus(attempt, exitstatus.Spurious)
			}
			<-ctx.Done()
			return exitstatus.NewWithStatus(attempt, exitstatus.Clean)
		}), true
	}
}

func TestRunReconstructsOnInnerFailure(t *testing.T) {
	var constructions int
	shutdown := make(chan struct{})

	done := make(chan exitstatus.AlwaysClean[struct{}], 1)
	go func() {
		done <- Run(Config[countingOutput]{
			Factory:  flakyFactory(3, &constructions),
			Shutdown: shutdown,
		})
	}()

	deadline := time.After(2 * time.Second)
	for {
		if constructions > 3 {
			break
		}
		select {
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			t.Fatalf("expected more than 3 constructions, got %d", constructions)
		}
	}

	close(shutdown)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}

func TestRunPublishesUpDownTransitions(t *testing.T) {
	var constructions int
	shutdown := make(chan struct{})
	report := NewStatePublisher(Down)

	done := make(chan exitstatus.AlwaysClean[struct{}], 1)
	go func() {
		done <- Run(Config[countingOutput]{
			Factory:  countingFactory(&constructions),
			Shutdown: shutdown,
			Report:   report,
		})
	}()

	deadline := time.After(2 * time.Second)
	for report.Latest() != Up {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			t.Fatal("expected Report to publish Up")
		}
	}

	close(shutdown)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}

func TestRunPreemptivelyReplacesOnInterval(t *testing.T) {
	var constructions int
	shutdown := make(chan struct{})

	done := make(chan exitstatus.AlwaysClean[struct{}], 1)
	go func() {
		done <- Run(Config[countingOutput]{
			Factory:             countingFactory(&constructions),
			Shutdown:            shutdown,
			ReplacementInterval: 10 * time.Millisecond,
		})
	}()

	deadline := time.After(2 * time.Second)
	for constructions < 3 {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			t.Fatalf("expected at least 3 preemptive constructions, got %d", constructions)
		}
	}

	close(shutdown)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after shutdown")
	}
}

func TestAsServiceReturnsContextErrorOnCancel(t *testing.T) {
	var constructions int
	svc := NewService("counting", Config[countingOutput]{
		Factory: countingFactory(&constructions),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if svc.String() != "counting" {
		t.Fatalf("String() = %q, want %q", svc.String(), "counting")
	}
}
