package wsconn

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/join"
	"github.com/tomtom215/svcgraph/servicehandle"
)

// Connection is the owner-side handle over one assembled WebSocket
// pipeline: shutting it down closes the socket and tears down every
// service feeding or draining it (spec.md §4.6).
type Connection = servicehandle.Handle[exitstatus.WithStatus[struct{}]]

// ctxFromShutdown adapts a signallable shutdown channel to a
// context.Context, for the Source/Sink calls the shuttles make into
// application code.
func ctxFromShutdown(shutdown <-chan struct{}) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-shutdown
		cancel()
	}()
	return ctx
}

// assemble joins every service under one shutdown and, once they all
// settle, closes conn. This is the shared tail of all six constructors.
func assemble(conn *websocket.Conn, services ...func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}]) Connection {
	return servicehandle.NewSignallable(func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		handles := make([]servicehandle.Handle[exitstatus.WithStatus[struct{}]], len(services))
		for i, fn := range services {
			fn := fn
			handles[i] = servicehandle.NewSignallable(fn)
		}
		_, status := join.JoinAll(shutdown, handles...)
		if status == exitstatus.Clean {
			_ = writeMessage(conn, Message{Kind: FrameClose, CloseCode: websocket.CloseNormalClosure})
		}
		_ = conn.Close()
		return exitstatus.NewWithStatus(struct{}{}, status)
	})
}

// NewSink assembles a receive-only connection: frames arrive, are
// decoded by format, and fed to app. There is no application-to-socket
// direction and no keepalive, so the read deadline is unbounded.
func NewSink[External any](conn *websocket.Conn, format OutputFormat[External], app Sink[External]) Connection {
	output := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleOutput(ctx, ShuttleOutputConfig[External]{
			Conn: conn, App: app, Format: format,
		}, shutdown)
	}
	return assemble(conn, output)
}

// NewSinkWithPings is NewSink plus a keepalive: the connection replies
// to the peer's liveness checks and detects a silent peer via
// read-deadline expiry, but still carries no application-to-socket
// direction.
func NewSinkWithPings[External any](conn *websocket.Conn, format OutputFormat[External], app Sink[External], ka KeepaliveConfig) Connection {
	pings := make(chan []byte, 1)
	pongs := make(chan []byte, 1)
	ka.Pings, ka.Pongs = pings, pongs

	output := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleOutput(ctx, ShuttleOutputConfig[External]{
			Conn: conn, App: app, Format: format, Pongs: pongs, PongWait: ka.Timeout,
		}, shutdown)
	}
	input := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleInput[struct{}](ctx, ShuttleInputConfig[struct{}]{Conn: conn, Pings: pings}, shutdown)
	}
	keep := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		return keepalive(ka, shutdown)
	}
	return assemble(conn, output, input, keep)
}

// NewSource assembles a send-only connection: items from app are
// encoded by format and written to the socket. A drain-only read loop
// still runs so a peer Close frame or transport error is detected.
func NewSource[Intermediate any](conn *websocket.Conn, format InputFormat[Intermediate], app Source[Intermediate]) Connection {
	input := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleInput(ctx, ShuttleInputConfig[Intermediate]{
			Conn: conn, App: app, Format: format,
		}, shutdown)
	}
	drain := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleOutput[struct{}](ctx, ShuttleOutputConfig[struct{}]{Conn: conn}, shutdown)
	}
	return assemble(conn, input, drain)
}

// NewSourceWithPings is NewSource plus a keepalive the peer can use to
// detect this side going silent.
func NewSourceWithPings[Intermediate any](conn *websocket.Conn, format InputFormat[Intermediate], app Source[Intermediate], ka KeepaliveConfig) Connection {
	pings := make(chan []byte, 1)
	pongs := make(chan []byte, 1)
	ka.Pings, ka.Pongs = pings, pongs

	input := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleInput(ctx, ShuttleInputConfig[Intermediate]{
			Conn: conn, App: app, Format: format, Pings: pings,
		}, shutdown)
	}
	drain := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleOutput[struct{}](ctx, ShuttleOutputConfig[struct{}]{Conn: conn, Pongs: pongs, PongWait: ka.Timeout}, shutdown)
	}
	keep := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		return keepalive(ka, shutdown)
	}
	return assemble(conn, input, drain, keep)
}

// NewNode assembles a full-duplex connection: appIn feeds the socket
// through inFormat, and frames read off the socket are decoded by
// outFormat and fed to appOut.
func NewNode[Intermediate, External any](conn *websocket.Conn, inFormat InputFormat[Intermediate], appIn Source[Intermediate], outFormat OutputFormat[External], appOut Sink[External]) Connection {
	input := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleInput(ctx, ShuttleInputConfig[Intermediate]{
			Conn: conn, App: appIn, Format: inFormat,
		}, shutdown)
	}
	output := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleOutput(ctx, ShuttleOutputConfig[External]{
			Conn: conn, App: appOut, Format: outFormat,
		}, shutdown)
	}
	return assemble(conn, input, output)
}

// NewNodeWithPings is NewNode plus a keepalive, the canonical
// bidirectional shape from spec.md §4.6.
func NewNodeWithPings[Intermediate, External any](conn *websocket.Conn, inFormat InputFormat[Intermediate], appIn Source[Intermediate], outFormat OutputFormat[External], appOut Sink[External], ka KeepaliveConfig) Connection {
	pings := make(chan []byte, 1)
	pongs := make(chan []byte, 1)
	ka.Pings, ka.Pongs = pings, pongs

	input := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleInput(ctx, ShuttleInputConfig[Intermediate]{
			Conn: conn, App: appIn, Format: inFormat, Pings: pings,
		}, shutdown)
	}
	output := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		ctx := ctxFromShutdown(shutdown)
		return shuttleOutput(ctx, ShuttleOutputConfig[External]{
			Conn: conn, App: appOut, Format: outFormat, Pongs: pongs, PongWait: ka.Timeout,
		}, shutdown)
	}
	keep := func(shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
		return keepalive(ka, shutdown)
	}
	return assemble(conn, input, output, keep)
}
