/*
Package supervisor wraps suture v4 in a three-layer tree, the same
shape the teacher's internal/supervisor/tree.go builds for its own
application, repurposed here to host svcgraph's robust services and
WebSocket connection pipeline instead of a media server's sync/API
stack:

	RootSupervisor ("svcgraph")
	├── DataSupervisor ("data-layer")
	│   └── (reserved for stateful demo services)
	├── MessagingSupervisor ("messaging-layer")
	│   └── robustservice.Run-backed services wrapping wsconn connections
	└── APISupervisor ("api-layer")
	    └── the demo's HTTP/WebSocket upgrade listener

This hierarchy exists for the same reason the teacher built it: a crash
in one layer shouldn't take down another, and each layer gets its own
failure-threshold/backoff counter. robust_service (spec.md §4.5) is not
replaced by this tree — a suture.Service that wraps robustservice.Run
composes into it exactly the way the teacher wraps its own concrete
services, but suture's own crash-and-restart has no notion of the
spec's preemptive replacement or Up/Down reporting, which live entirely
inside robustservice.

# Usage

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	tree.AddMessagingService(echoConnService)
	ctx := context.Background()
	if err := tree.Serve(ctx); err != nil {
	    log.Printf("supervisor stopped: %v", err)
	}

# Service interface

Every added service implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil stops the service for good; returning an error restarts
it (subject to FailureThreshold/FailureDecay/FailureBackoff); context
cancellation requests shutdown.
*/
package supervisor
