package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// connectionStub is a test double for the messaging layer: it stands
// in for a wsconn.Connection or a robustservice.AsService wrapped as a
// suture.Service, without opening a real socket. A dropped connection
// is a transient error the supervisor should retry; a permanent
// failure or a canceled context ends the simulated session, the same
// two ways a real connection's Serve loop can return.
type connectionStub struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	dropCount  atomic.Int32
	maxDrops   int32
	err        error
	mu         sync.Mutex
}

// newConnectionStub constructs a connectionStub that runs until its
// context is canceled, unless configured otherwise via flapTimes or
// failPermanently.
func newConnectionStub(name string) *connectionStub {
	return &connectionStub{name: name}
}

// Serve implements suture.Service.
func (c *connectionStub) Serve(ctx context.Context) error {
	c.startCount.Add(1)
	defer c.stopCount.Add(1)

	c.mu.Lock()
	err := c.err
	maxDrops := c.maxDrops
	c.mu.Unlock()

	if maxDrops > 0 {
		attempt := c.dropCount.Add(1)
		if attempt <= maxDrops {
			return errors.New("simulated dropped connection")
		}
	}
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// failPermanently makes every future Serve call return err immediately.
func (c *connectionStub) failPermanently(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// flapTimes makes the first n Serve calls return a transient drop
// error before the connection settles into its steady-state behavior.
func (c *connectionStub) flapTimes(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxDrops = int32(n)
}

// opens reports how many times Serve was invoked, i.e. how many times
// the supervisor (re)established this simulated connection.
func (c *connectionStub) opens() int32 { return c.startCount.Load() }

// closes reports how many times Serve returned.
func (c *connectionStub) closes() int32 { return c.stopCount.Load() }

// String implements fmt.Stringer so suture's event log names the
// connection the way it would a real one.
func (c *connectionStub) String() string { return c.name }
