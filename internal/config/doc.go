// Package config loads the small set of tunables the echoserver demo
// needs: WebSocket ping/pong timing, the robust-service replacement
// interval, reconnect backoff bounds, and the ping/pong channel
// capacities from spec.md §4.6/§5.
//
// Loading follows the same three-layer precedence as the teacher's
// internal/config/koanf.go (struct defaults, then an optional YAML file,
// then environment variables, each layer overriding the last), built on
// the same koanf/v2 + env + file + yaml + structs providers. What the
// teacher spreads across fifty-odd nested sections (Tautulli, Plex,
// Jellyfin, NATS, security, recommendation engine, ...) is reduced here
// to the handful of fields this library's own demo actually reads.
package config
