package join

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/servicehandle"
)

type out = exitstatus.WithStatus[int]

func cleanHandle(value int) servicehandle.Handle[out] {
	return servicehandle.NewCancellable(context.Background(), func(ctx context.Context) out {
		return exitstatus.NewWithStatus(value, exitstatus.Clean)
	})
}

func TestJoinAllHappyPath(t *testing.T) {
	h1, h2, h3 := cleanHandle(1), cleanHandle(2), cleanHandle(3)
	outputs, status := JoinAll[out](nil, h1, h2, h3)
	if status != exitstatus.Clean {
		t.Fatalf("status = %v, want Clean", status)
	}
	want := []int{1, 2, 3}
	for i, o := range outputs {
		if o.Value != want[i] {
			t.Fatalf("outputs[%d] = %d, want %d", i, o.Value, want[i])
		}
	}
}

func TestJoinAllCascadesOnSpuriousPeer(t *testing.T) {
	started := make(chan struct{})
	abortedOutput := make(chan int, 1)
	survivor := servicehandle.NewCancellable(context.Background(), func(ctx context.Context) out {
		close(started)
		<-ctx.Done()
		abortedOutput <- 1
		return exitstatus.NewWithStatus(0, exitstatus.Clean)
	})
	failing := servicehandle.NewCancellable(context.Background(), func(ctx context.Context) out {
		<-started
		return exitstatus.NewWithStatus(99, exitstatus.Spurious)
	})

	_, status := JoinAll[out](nil, survivor, failing)
	if status != exitstatus.Spurious {
		t.Fatalf("status = %v, want Spurious", status)
	}
	select {
	case <-abortedOutput:
	case <-time.After(time.Second):
		t.Fatal("surviving peer was never shut down after sibling failure")
	}
}

func TestJoinAllShutdownTearsDownRunningPeer(t *testing.T) {
	shutdown := make(chan struct{})
	close(shutdown)

	stopped := make(chan struct{})
	h := servicehandle.NewCancellable(context.Background(), func(ctx context.Context) out {
		<-ctx.Done()
		close(stopped)
		return exitstatus.NewWithStatus(0, exitstatus.Clean)
	})

	outputs, status := JoinAll[out](shutdown, h)
	if status != exitstatus.Clean {
		t.Fatalf("status = %v, want Clean (the peer itself exited cleanly once cancelled)", status)
	}
	if len(outputs) != 1 {
		t.Fatalf("outputs = %v, want exactly 1 entry", outputs)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("peer was not torn down by the fired shutdown trigger")
	}
}

func TestJoinAllOfZeroHandlesIsClean(t *testing.T) {
	outputs, status := JoinAll[out](nil)
	if status != exitstatus.Clean || len(outputs) != 0 {
		t.Fatalf("JoinAll of no handles = (%v, %v), want (Clean, [])", outputs, status)
	}
}

func TestJoin2HeterogeneousHappyPath(t *testing.T) {
	a := servicehandle.NewCancellable(context.Background(), func(ctx context.Context) exitstatus.WithStatus[int] {
		return exitstatus.NewWithStatus(10, exitstatus.Clean)
	})
	b := servicehandle.NewCancellable(context.Background(), func(ctx context.Context) exitstatus.WithStatus[string] {
		return exitstatus.NewWithStatus("ok", exitstatus.Clean)
	})
	va, vb, status := Join2(nil, a, b)
	if status != exitstatus.Clean || va.Value != 10 || vb.Value != "ok" {
		t.Fatalf("Join2 = (%+v, %+v, %v)", va, vb, status)
	}
}
