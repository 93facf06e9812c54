package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

// ExecOption configures a single Pour or Pump call.
type ExecOption func(*execOptions)

type execOptions struct {
	ctx       context.Context
	extraTaps []TubeRef
}

// WithContext threads a context through the execution. The engine checks
// it for cancellation between tank evaluations and hands it to observers;
// it introduces no scheduling of its own.
func WithContext(ctx context.Context) ExecOption {
	return func(o *execOptions) { o.ctx = ctx }
}

// WithExtraTaps asks Pour to additionally report the named intermediate
// tubes in its tap dictionary even though they are wired downstream.
func WithExtraTaps(tubes ...TubeRef) ExecOption {
	return func(o *execOptions) { o.extraTaps = append(o.extraTaps, tubes...) }
}

func buildExecOptions(opts []ExecOption) execOptions {
	o := execOptions{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// observeStart fans ExecutionStarted out to every observer, threading the
// context so tracing observers can attach a span.
func (w *Waterwork) observeStart(ctx context.Context, dir ports.Direction) context.Context {
	for _, obs := range w.observers {
		ctx = obs.ExecutionStarted(ctx, w.name, dir)
	}
	return ctx
}

func (w *Waterwork) observeTank(ctx context.Context, tank string, dir ports.Direction, elapsed time.Duration, err error) {
	for _, obs := range w.observers {
		obs.TankExecuted(ctx, w.name, tank, dir, elapsed, err)
	}
}

func (w *Waterwork) observeFinish(ctx context.Context, dir ports.Direction, elapsed time.Duration, err error) {
	for _, obs := range w.observers {
		obs.ExecutionFinished(ctx, w.name, dir, elapsed, err)
	}
}

// checkTankOutputs guards against a misbehaving tank implementation by
// verifying it produced exactly its declared output keys.
func checkTankOutputs(tankName string, declared []string, got map[string]domain.Value, side domain.PortSide) error {
	for _, k := range declared {
		if got[k] == nil {
			key := domain.TubeKey(tankName, k)
			if side == domain.SideSlot {
				key = domain.SlotKey(tankName, k)
			}
			return domain.NewPortError(key, "exec", fmt.Errorf("tank produced no value for declared port"))
		}
	}
	if len(got) != len(declared) {
		return fmt.Errorf("tank %s produced %d values for %d declared ports", tankName, len(got), len(declared))
	}
	return nil
}
