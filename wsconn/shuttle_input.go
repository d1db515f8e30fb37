package wsconn

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/internal/logging"
	"github.com/tomtom215/svcgraph/selectloop"
)

// ShuttleInputConfig configures shuttleInput (spec.md §4.6).
type ShuttleInputConfig[T any] struct {
	Conn *websocket.Conn
	// App is the application stream forwarded to the socket. Nil means
	// this shuttle only carries keepalive pings (the sink_with_pings
	// mode, which has no application-to-socket direction).
	App    Source[T]
	Format InputFormat[T]
	// Pings, if non-nil, is a higher-priority secondary input of raw
	// ping payloads from a keepalive service (spec.md §4.6: "injects
	// ping frames with priority over application items").
	Pings <-chan []byte
}

// shuttleInput forwards items from App through Format to Conn, giving
// Pings strict priority, until App is exhausted (Clean), an
// application frame write fails (Spurious), or ctx is canceled (the
// signallable shutdown contract: ctx is the shutdown channel's
// context-ified form, honored by returning Clean as soon as it's
// observed). A failed ping write is logged and treated as Clean,
// mirroring the original's clean (non-fallible) feed! on the ping
// branch versus the fallible feed! on the application branch.
func shuttleInput[T any](ctx context.Context, cfg ShuttleInputConfig[T], shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
	appCh := make(chan T)
	if cfg.App != nil {
		go func() {
			defer close(appCh)
			for {
				item, ok := cfg.App.Next(ctx)
				if !ok {
					return
				}
				select {
				case appCh <- item:
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		// A nil channel never becomes ready, so the loop runs on pings
		// and shutdown alone instead of ending at once.
		appCh = nil
	}

	var finalStatus exitstatus.ExitStatus
	loop := selectloop.New(func(s exitstatus.ExitStatus) struct{} {
		finalStatus = s
		return struct{}{}
	})
	loop.Add(selectloop.StreamBranch(shutdown, false, func(struct{}) selectloop.Outcome {
		return selectloop.Terminate(exitstatus.Clean)
	}))
	if cfg.Pings != nil {
		loop.Add(selectloop.StreamBranch(cfg.Pings, false, func(payload []byte) selectloop.Outcome {
			if err := writeMessage(cfg.Conn, Message{Kind: FramePing, Data: payload}); err != nil {
				logging.Warn().Err(err).Msg("wsconn: failed to write ping frame")
				return selectloop.Terminate(exitstatus.Clean)
			}
			return selectloop.Continue()
		}))
	}
	loop.Add(selectloop.StreamBranch(appCh, false, func(item T) selectloop.Outcome {
		msg, ok := cfg.Format.Convert(item)
		if !ok {
			return selectloop.Continue()
		}
		if err := writeMessage(cfg.Conn, msg); err != nil {
			logging.Error().Err(err).Msg("wsconn: failed to write application frame")
			return selectloop.Terminate(exitstatus.Spurious)
		}
		return selectloop.Continue()
	}))
	loop.Run()
	return exitstatus.NewWithStatus(struct{}{}, finalStatus)
}
