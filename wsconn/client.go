package wsconn

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/internal/logging"
	"github.com/tomtom215/svcgraph/robustservice"
	"github.com/tomtom215/svcgraph/servicehandle"
)

// DialConfig is what a reconnecting client needs to dial and back off
// (spec.md §4.6, grounded on
// original_source/src/websocket/client.rs's connect_with_retry).
type DialConfig struct {
	URL        string
	Header     http.Header
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

type jitterSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newJitterSource() *jitterSource {
	//nolint:gosec // non-cryptographic jitter in reconnect backoff timing
	return &jitterSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (j *jitterSource) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return min + time.Duration(j.rng.Int63n(int64(max-min)))
}

var clientJitter = newJitterSource()

// dialWithRetry dials cfg.URL, retrying with a uniformly jittered delay
// in [MinBackoff, MaxBackoff) between attempts, until it succeeds or ctx
// is canceled. ok is false iff ctx was canceled before a connection was
// established.
func dialWithRetry(ctx context.Context, cfg DialConfig) (conn *websocket.Conn, ok bool) {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, cfg.Header)
		if err == nil {
			return conn, true
		}
		logging.Error().Err(err).Str("url", cfg.URL).Msg("wsconn: failed to establish websocket connection, retrying")

		delay := clientJitter.between(cfg.MinBackoff, cfg.MaxBackoff)
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}
	}
}

// ClientFactory adapts a connection-mode constructor into a
// robustservice.Factory that reconnects with backoff on every
// (re)construction: robustservice.Run already handles "the current
// instance exited, build a new one," so the client-side reconnect loop
// only needs to know how to dial and how to assemble a Connection from
// the resulting *websocket.Conn.
//
// build is one of this package's six NewSink*/NewSource*/NewNode*
// constructors, partially applied to everything but the dialed
// connection.
func ClientFactory(cfg DialConfig, build func(conn *websocket.Conn) Connection) robustservice.Factory[exitstatus.WithStatus[struct{}]] {
	return func(ctx context.Context) (servicehandle.Handle[exitstatus.WithStatus[struct{}]], bool) {
		conn, ok := dialWithRetry(ctx, cfg)
		if !ok {
			return nil, false
		}
		return build(conn), true
	}
}
