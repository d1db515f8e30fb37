package wsconn

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/internal/logging"
	"github.com/tomtom215/svcgraph/selectloop"
)

// ShuttleOutputConfig configures shuttleOutput (spec.md §4.6).
type ShuttleOutputConfig[T any] struct {
	Conn *websocket.Conn
	// App receives decoded application values. Nil means this shuttle
	// only exists to drain the socket and service keepalive pongs (the
	// source and source_with_pings modes).
	App    Sink[T]
	Format OutputFormat[T]
	// Pongs, if non-nil, receives raw pong payloads for a keepalive
	// service to validate.
	Pongs chan<- []byte
	// PongWait is the read deadline refreshed by every Pong frame.
	PongWait time.Duration
}

// shuttleOutput reads frames from Conn and dispatches them by kind
// (spec.md §4.6): Text/Binary through Format to App, Pong to Pongs,
// Ping absorbed silently (gorilla's default ping handler already
// replies), Close or a transport error terminates Spurious, and
// observing a raw frame is a programmer-error panic.
func shuttleOutput[T any](ctx context.Context, cfg ShuttleOutputConfig[T], shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
	frames := startFrameReader(cfg.Conn, cfg.PongWait)

	var finalStatus exitstatus.ExitStatus
	loop := selectloop.New(func(s exitstatus.ExitStatus) struct{} {
		finalStatus = s
		return struct{}{}
	})
	loop.Add(selectloop.StreamBranch(shutdown, false, func(struct{}) selectloop.Outcome {
		return selectloop.Terminate(exitstatus.Clean)
	}))
	loop.Add(selectloop.StreamBranch(frames, true, func(rf readFrame) selectloop.Outcome {
		if rf.err != nil {
			logging.Warn().Err(rf.err).Msg("wsconn: websocket read error")
			return selectloop.Terminate(exitstatus.Spurious)
		}
		switch rf.msg.Kind {
		case FrameText:
			if out := deliverOutput(ctx, cfg, func() (T, bool) { return cfg.Format.ConvertText([]byte(rf.msg.Text)) }); out != selectloop.Continue() {
				return out
			}
		case FrameBinary:
			if out := deliverOutput(ctx, cfg, func() (T, bool) { return cfg.Format.ConvertBinary(rf.msg.Data) }); out != selectloop.Continue() {
				return out
			}
		case FramePong:
			if cfg.Pongs != nil {
				select {
				case cfg.Pongs <- rf.msg.Data:
				case <-shutdown:
				}
			}
		case FramePing:
			// Lower protocol layer (gorilla) already replies; nothing
			// further to do here.
		case FrameClose:
			return selectloop.Terminate(exitstatus.Spurious)
		case FrameRaw:
			panic("wsconn: observed a raw frame, which a stream must never produce")
		}
		return selectloop.Continue()
	}))
	loop.Run()
	return exitstatus.NewWithStatus(struct{}{}, finalStatus)
}

// deliverOutput converts a wire payload and feeds it to App, returning
// the outcome the caller's branch handler should produce. A codec miss
// (ConvertText or ConvertBinary, whichever the frame kind selects,
// returning false) is a
// soft, recoverable error (spec.md §7): logged at ERROR, frame
// dropped, shuttle continues. A sink rejection is terminal but clean,
// mirroring original_source's non-fallible feed!(outputs, output) on
// this branch: logged at WARN, loop terminates Clean rather than
// escalating to a Spurious supervisor restart.
func deliverOutput[T any](ctx context.Context, cfg ShuttleOutputConfig[T], convert func() (T, bool)) selectloop.Outcome {
	if cfg.App == nil {
		return selectloop.Continue()
	}
	value, ok := convert()
	if !ok {
		logging.Error().Msg("wsconn: codec dropped an unconvertible frame")
		return selectloop.Continue()
	}
	if err := cfg.App.Feed(ctx, value); err != nil {
		logging.Warn().Err(err).Msg("wsconn: application sink rejected a frame, terminating")
		return selectloop.Terminate(exitstatus.Clean)
	}
	return selectloop.Continue()
}
