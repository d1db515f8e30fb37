package wsconn

import "context"

// Source is the lazy sequence producer from spec.md §6: Next blocks
// until an item is available, ctx is canceled, or the sequence is
// exhausted (ok=false).
type Source[T any] interface {
	Next(ctx context.Context) (item T, ok bool)
}

// Sink is the external output consumer from spec.md §6. Feed is the
// "send" operation (feed + flush collapse to one call here: Go channel-
// and-socket sinks have no separate buffered-flush step worth
// modelling).
type Sink[T any] interface {
	Feed(ctx context.Context, item T) error
}

// ChannelSource adapts a receive-only channel to Source.
type ChannelSource[T any] <-chan T

func (c ChannelSource[T]) Next(ctx context.Context) (T, bool) {
	select {
	case v, ok := <-c:
		return v, ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// ChannelSink adapts a send-only channel to Sink.
type ChannelSink[T any] chan<- T

func (c ChannelSink[T]) Feed(ctx context.Context, item T) error {
	select {
	case c <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FuncSink adapts a plain function to Sink, e.g. for a test "drain"
// sink (spec.md §8 scenario S1) or an application callback.
type FuncSink[T any] func(context.Context, T) error

func (f FuncSink[T]) Feed(ctx context.Context, item T) error { return f(ctx, item) }
