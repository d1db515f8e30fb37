package wsconn

import (
	"bytes"
	"encoding/binary"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/svcgraph/exitstatus"
	"github.com/tomtom215/svcgraph/internal/logging"
	"github.com/tomtom215/svcgraph/internal/metrics"
	"github.com/tomtom215/svcgraph/selectloop"
)

// KeepaliveConfig configures the keepalive service (spec.md §4.6).
type KeepaliveConfig struct {
	// Interval is how often a ping payload is emitted.
	Interval time.Duration
	// Timeout is how long the keepalive waits for a matching pong
	// before terminating Spurious.
	Timeout time.Duration
	// Pings is the channel pings are sent on for shuttleInput to
	// inject into the socket.
	Pings chan<- []byte
	// Pongs is the channel pongs arrive on from shuttleOutput.
	Pongs <-chan []byte
}

// encodePing encodes a ping counter as 4 big-endian bytes (spec.md
// §4.6: "the 32-bit counter in big-endian; increments by one per
// ping").
func encodePing(counter uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, counter)
	return buf
}

// pingOutcome is the result of waiting out one ping's round trip.
type pingOutcome int

const (
	pingOutcomeAcked pingOutcome = iota
	pingOutcomeShutdown
	pingOutcomeFailed
)

// keepalive emits monotonically numbered pings at cfg.Interval and,
// for each one, waits with priority shutdown > matching-pong >
// timeout (spec.md §4.6). Missed-tick policy is Delay: a slow pong
// does not cause a burst of queued pings, since the next ping is only
// emitted after the current one resolves.
func keepalive(cfg KeepaliveConfig, shutdown <-chan struct{}) exitstatus.WithStatus[struct{}] {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	// limiter is a backstop, not the pacing mechanism: the ticker above
	// already paces pings at cfg.Interval, but a platform timer can
	// misfire early under scheduler or clock skew. limiter guarantees a
	// misbehaving peer is never ping-flooded faster than cfg.Interval
	// regardless of how the ticker behaves.
	limiter := rate.NewLimiter(rate.Every(cfg.Interval), 1)

	var counter uint32
	for {
		select {
		case <-shutdown:
			return exitstatus.NewWithStatus(struct{}{}, exitstatus.Clean)
		case <-ticker.C:
		}
		if !limiter.Allow() {
			continue
		}

		sent := time.Now()
		payload := encodePing(counter)
		select {
		case cfg.Pings <- payload:
		case <-shutdown:
			return exitstatus.NewWithStatus(struct{}{}, exitstatus.Clean)
		}

		switch waitForPong(cfg, shutdown, payload, sent) {
		case pingOutcomeShutdown:
			return exitstatus.NewWithStatus(struct{}{}, exitstatus.Clean)
		case pingOutcomeFailed:
			return exitstatus.NewWithStatus(struct{}{}, exitstatus.Spurious)
		case pingOutcomeAcked:
			counter++
		}
	}
}

// waitForPong waits with priority shutdown > matching pong > timeout
// for one ping's round trip.
func waitForPong(cfg KeepaliveConfig, shutdown <-chan struct{}, wantPayload []byte, sent time.Time) pingOutcome {
	timeout := time.After(cfg.Timeout)

	result := pingOutcomeAcked
	loop := selectloop.New(func(exitstatus.ExitStatus) struct{} { return struct{}{} })
	loop.Add(selectloop.StreamBranch(shutdown, false, func(struct{}) selectloop.Outcome {
		result = pingOutcomeShutdown
		return selectloop.Terminate(exitstatus.Clean)
	}))
	loop.Add(selectloop.StreamBranch(cfg.Pongs, false, func(got []byte) selectloop.Outcome {
		if !bytes.Equal(got, wantPayload) {
			logging.Error().Msg("wsconn: keepalive received a pong for a non-current counter")
			metrics.RecordWSError("keepalive", "pong_mismatch")
			result = pingOutcomeFailed
			return selectloop.Terminate(exitstatus.Spurious)
		}
		metrics.RecordPingRoundtrip(time.Since(sent))
		result = pingOutcomeAcked
		return selectloop.Terminate(exitstatus.Clean)
	}))
	loop.Add(selectloop.StreamBranch(timeout, false, func(time.Time) selectloop.Outcome {
		logging.Error().Msg("wsconn: keepalive timed out waiting for pong")
		metrics.RecordWSError("keepalive", "ping_timeout")
		result = pingOutcomeFailed
		return selectloop.Terminate(exitstatus.Spurious)
	}))
	loop.Run()
	return result
}
