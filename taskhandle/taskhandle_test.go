package taskhandle

import (
	"context"
	"testing"
	"time"
)

func TestCancellableParallelReturnsValue(t *testing.T) {
	h := NewCancellableParallel(context.Background(), func(ctx context.Context) int {
		return 42
	})
	if got := h.Wait(); got != 42 {
		t.Fatalf("Wait() = %d, want 42", got)
	}
}

func TestCancellableAbortYieldsDefault(t *testing.T) {
	h := NewCancellableInPlace(context.Background(), func(ctx context.Context) int {
		<-ctx.Done()
		return 99 // must not be observed: abort substitutes the zero value
	})
	h.Abort()
	if got := h.Wait(); got != 0 {
		t.Fatalf("Wait() after Abort() = %d, want 0 (type default)", got)
	}
}

func TestCancellableInPlaceDoesNotStartUntilWaited(t *testing.T) {
	started := make(chan struct{})
	h := NewCancellableInPlace(context.Background(), func(ctx context.Context) int {
		close(started)
		return 1
	})
	select {
	case <-started:
		t.Fatal("in-place computation started before Wait was called")
	case <-time.After(20 * time.Millisecond):
	}
	h.Wait()
}

func TestCancellableParallelStartsImmediately(t *testing.T) {
	started := make(chan struct{})
	NewCancellableParallel(context.Background(), func(ctx context.Context) int {
		close(started)
		<-ctx.Done()
		return 0
	})
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("parallel computation never started")
	}
}

func TestSignallableAbortIsObservedByComputation(t *testing.T) {
	h := NewSignallableParallel(func(shutdown <-chan struct{}) string {
		<-shutdown
		return "stopped cleanly"
	})
	h.Abort()
	if got := h.Wait(); got != "stopped cleanly" {
		t.Fatalf("Wait() = %q, want %q", got, "stopped cleanly")
	}
}

func TestSignallableAbortIsIdempotent(t *testing.T) {
	h := NewSignallableParallel(func(shutdown <-chan struct{}) int {
		<-shutdown
		return 1
	})
	h.Abort()
	h.Abort() // must not panic
	h.Wait()
}

func TestWaitAfterWaitPanics(t *testing.T) {
	h := NewCancellableParallel(context.Background(), func(ctx context.Context) int { return 1 })
	h.Wait()
	defer func() {
		if recover() == nil {
			t.Fatal("second Wait() did not panic")
		}
	}()
	h.Wait()
}

func TestCancellableWaitEqualsValueForDefaultableType(t *testing.T) {
	// Round-trip law: constructing a cancellable handle over a future that
	// resolves to v and awaiting it returns v, for any v with a default.
	for _, v := range []int{0, 1, -5, 1000} {
		h := NewCancellableParallel(context.Background(), func(ctx context.Context) int { return v })
		if got := h.Wait(); got != v {
			t.Errorf("Wait() = %d, want %d", got, v)
		}
	}
}

func TestPanicPropagatesThroughWait(t *testing.T) {
	h := NewCancellableParallel(context.Background(), func(ctx context.Context) int {
		panic("boom")
	})
	defer func() {
		r := recover()
		if r != "boom" {
			t.Fatalf("recovered %v, want %q", r, "boom")
		}
	}()
	h.Wait()
}
