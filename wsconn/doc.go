// Package wsconn is the canonical nontrivial consumer of svcgraph's
// service/task machinery: a WebSocket connection pipeline built from
// two shuttle services and an optional keepalive, joined under one
// shutdown (spec.md §4.6).
//
// Grounding. The teacher's internal/websocket/client.go Client
// readPump/writePump pair is the direct ancestor of shuttleOutput and
// shuttleInput respectively: SetReadDeadline/SetPongHandler/
// WriteMessage/ReadMessage are used exactly as the teacher uses them,
// generalized from "one hub's fixed JSON Message" to a caller-supplied
// InputFormat/OutputFormat codec and a caller-supplied application
// stream/sink instead of a hub's broadcast channel. hub.go's
// RunWithContext hand-unrolled priority select (shutdown, then
// register/unregister, then broadcast, each tier tried non-blocking
// before falling through) is the same technique selectloop
// generalizes and that both shuttles and keepalive build on here.
//
// The six connection-mode constructors (NewSink, NewSinkWithPings,
// NewSource, NewSourceWithPings, NewNode, NewNodeWithPings) and the
// ping/pong counter protocol are grounded on
// original_source/src/websocket/{client,keepalive}/*.rs, which the
// distilled spec.md only narrates in prose for the *_with_pings node
// case.
package wsconn
