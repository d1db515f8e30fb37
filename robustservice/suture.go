package robustservice

import (
	"context"

	"github.com/tomtom215/svcgraph/exitstatus"
)

// AsService adapts a Config into a suture.Service (suture/v4's
// Serve(ctx context.Context) error contract), so a robust service
// supervisor can itself be hosted as a leaf in a suture supervision
// tree (internal/supervisor) alongside ordinary services.
//
// The supervisor's own context is the shutdown axis: Serve derives a
// fresh shutdown channel from ctx and installs it as cfg.Shutdown,
// overwriting whatever the caller set there, since the suture tree now
// owns that axis exclusively. Serve returns ctx.Err() once Run
// observes the shutdown, matching the convention the teacher's
// MockService.Serve already follows (return ctx.Err() on ctx.Done()),
// so suture's own restart-on-cancel-context suppression applies here
// unchanged.
type AsService[T exitstatus.ServiceExitStatus] struct {
	Name   string
	Config Config[T]
}

// NewService constructs an AsService. Any Config.Shutdown the caller
// set is discarded; Serve installs its own ctx-derived channel.
func NewService[T exitstatus.ServiceExitStatus](name string, cfg Config[T]) *AsService[T] {
	return &AsService[T]{Name: name, Config: cfg}
}

// Serve implements suture.Service.
func (s *AsService[T]) Serve(ctx context.Context) error {
	shutdown := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(shutdown)
	}()

	cfg := s.Config
	cfg.Shutdown = shutdown
	Run(cfg)
	return ctx.Err()
}

// String identifies this service in suture's log output.
func (s *AsService[T]) String() string {
	return s.Name
}
