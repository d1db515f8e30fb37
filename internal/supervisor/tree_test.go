package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates the three-layer tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(discardLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(discardLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config.FailureThreshold != 5.0 {
			t.Errorf("expected default FailureThreshold 5.0, got %f", tree.config.FailureThreshold)
		}
		if tree.config.FailureDecay != 30.0 {
			t.Errorf("expected default FailureDecay 30.0, got %f", tree.config.FailureDecay)
		}
		if tree.config.FailureBackoff != 15*time.Second {
			t.Errorf("expected default FailureBackoff 15s, got %v", tree.config.FailureBackoff)
		}
		if tree.config.ShutdownTimeout != 10*time.Second {
			t.Errorf("expected default ShutdownTimeout 10s, got %v", tree.config.ShutdownTimeout)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("tree shuts down every layer when its context is canceled", func(t *testing.T) {
		tree, err := NewSupervisorTree(discardLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		tree.AddDataService(newConnectionStub("fanout-worker"))
		tree.AddMessagingService(newConnectionStub("ws-connection"))
		tree.AddAPIService(newConnectionStub("http-listener"))

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- tree.Serve(ctx) }()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}
	})

	t.Run("ServeBackground surfaces the context's error on its channel", func(t *testing.T) {
		tree, _ := NewSupervisorTree(discardLogger(), TreeConfig{ShutdownTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("did not receive from error channel")
		}
	})
}

func TestSupervisorTreeServiceManagement(t *testing.T) {
	t.Run("a fanout worker in the data layer is started", func(t *testing.T) {
		tree, _ := NewSupervisorTree(discardLogger(), TreeConfig{ShutdownTimeout: time.Second})
		svc := newConnectionStub("fanout-worker")
		tree.AddDataService(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		go tree.Serve(ctx)
		time.Sleep(100 * time.Millisecond)

		if svc.opens() < 1 {
			t.Error("data service was not started")
		}
	})

	t.Run("a websocket connection in the messaging layer is started", func(t *testing.T) {
		tree, _ := NewSupervisorTree(discardLogger(), TreeConfig{ShutdownTimeout: time.Second})
		svc := newConnectionStub("ws-connection")
		tree.AddMessagingService(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		go tree.Serve(ctx)
		time.Sleep(100 * time.Millisecond)

		if svc.opens() < 1 {
			t.Error("messaging service was not started")
		}
	})

	t.Run("the http listener in the api layer is started", func(t *testing.T) {
		tree, _ := NewSupervisorTree(discardLogger(), TreeConfig{ShutdownTimeout: time.Second})
		svc := newConnectionStub("http-listener")
		tree.AddAPIService(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		go tree.Serve(ctx)
		time.Sleep(100 * time.Millisecond)

		if svc.opens() < 1 {
			t.Error("api service was not started")
		}
	})

	// Remove/RemoveAndWait on tree.Root() only work for services added
	// directly to the root supervisor; a service added to one of the
	// three layers must be removed from that layer's own supervisor,
	// which this package does not currently expose beyond Add*Service.
}

func TestSupervisorTreeFailureHandling(t *testing.T) {
	t.Run("a dropped connection in one layer is reconnected without affecting another layer", func(t *testing.T) {
		tree, _ := NewSupervisorTree(discardLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		flapping := newConnectionStub("flapping-connection")
		flapping.flapTimes(2) // drops twice, then holds

		listener := newConnectionStub("http-listener")

		tree.AddMessagingService(flapping)
		tree.AddAPIService(listener)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go tree.Serve(ctx)
		time.Sleep(200 * time.Millisecond)

		if flapping.opens() < 3 {
			t.Errorf("expected at least 3 (re)opens for the flapping connection, got %d", flapping.opens())
		}
		if listener.opens() < 1 {
			t.Error("the unrelated api-layer service was not started")
		}
	})
}

func TestDefaultTreeConfig(t *testing.T) {
	config := DefaultTreeConfig()

	if config.FailureThreshold != 5.0 {
		t.Errorf("expected FailureThreshold 5.0, got %f", config.FailureThreshold)
	}
	if config.FailureDecay != 30.0 {
		t.Errorf("expected FailureDecay 30.0, got %f", config.FailureDecay)
	}
	if config.FailureBackoff != 15*time.Second {
		t.Errorf("expected FailureBackoff 15s, got %v", config.FailureBackoff)
	}
	if config.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", config.ShutdownTimeout)
	}
}
