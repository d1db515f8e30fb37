// Package metrics instruments the service-lifecycle primitives with
// Prometheus collectors, using promauto exactly the way the teacher's
// internal/metrics package registers its database/API/websocket
// families.
//
// The teacher's metrics span a media-server product (DuckDB query
// timings, tile cache hit rate, PAT tokens, ...); none of that has a
// home in this library. What generalizes is its WebSocket gauge
// family (websocket_connections, websocket_messages_sent_total,
// websocket_errors_total): this package keeps that shape but widens it
// from "one hub" to "N robustservice-supervised services" plus the
// keepalive ping/pong timings spec.md §4.6 introduces.
package metrics
