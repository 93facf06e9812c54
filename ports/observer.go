package ports

import (
	"context"
	"time"
)

// Direction identifies which way a waterwork execution is flowing.
type Direction int

const (
	// DirectionPour is forward execution: placeholders to taps.
	DirectionPour Direction = iota
	// DirectionPump is backward execution: taps to placeholders.
	DirectionPump
)

// String returns "pour" or "pump".
func (d Direction) String() string {
	if d == DirectionPump {
		return "pump"
	}
	return "pour"
}

// ExecObserver receives execution lifecycle events from a waterwork.
// Observers are attached at construction time and must be safe for
// concurrent use: a frozen graph may be executed from many goroutines at
// once. The engine itself carries no observability dependencies; the
// middleware package provides Prometheus and OpenTelemetry implementations.
type ExecObserver interface {
	// ExecutionStarted is invoked before the topological walk begins.
	// The returned context is threaded through the remaining events of
	// the same call, letting tracing implementations carry a span.
	ExecutionStarted(ctx context.Context, graph string, dir Direction) context.Context

	// TankExecuted is invoked after each tank's pour or pump, including
	// the failed one that aborts the walk.
	TankExecuted(ctx context.Context, graph, tank string, dir Direction, elapsed time.Duration, err error)

	// ExecutionFinished is invoked exactly once per execution with the
	// overall duration and outcome.
	ExecutionFinished(ctx context.Context, graph string, dir Direction, elapsed time.Duration, err error)
}
