package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascata/waterworks/ports"
)

// Without a tracer provider installed the global tracer is a no-op, so
// these tests exercise the observer's lifecycle handling rather than
// exported span contents.
func TestOTelObserverLifecycle(t *testing.T) {
	obs := NewOTelObserver()
	ctx := context.Background()

	spanCtx := obs.ExecutionStarted(ctx, "g", ports.DirectionPour)
	require.NotNil(t, spanCtx)

	assert.NotPanics(t, func() {
		obs.TankExecuted(spanCtx, "g", "rp", ports.DirectionPour, time.Millisecond, nil)
		obs.TankExecuted(spanCtx, "g", "div_0", ports.DirectionPour, time.Millisecond, errors.New("boom"))
		obs.ExecutionFinished(spanCtx, "g", ports.DirectionPour, 2*time.Millisecond, nil)
	})

	assert.NotPanics(t, func() {
		spanCtx := obs.ExecutionStarted(ctx, "g", ports.DirectionPump)
		obs.ExecutionFinished(spanCtx, "g", ports.DirectionPump, time.Millisecond, errors.New("boom"))
	})
}

func TestOTelObserverIsStateless(t *testing.T) {
	// One instance serves interleaved executions; the span travels in the
	// context, never in the observer.
	obs := NewOTelObserver()
	a := obs.ExecutionStarted(context.Background(), "a", ports.DirectionPour)
	b := obs.ExecutionStarted(context.Background(), "b", ports.DirectionPump)

	assert.NotPanics(t, func() {
		obs.TankExecuted(b, "b", "t", ports.DirectionPump, 0, nil)
		obs.TankExecuted(a, "a", "t", ports.DirectionPour, 0, nil)
		obs.ExecutionFinished(a, "a", ports.DirectionPour, 0, nil)
		obs.ExecutionFinished(b, "b", ports.DirectionPump, 0, nil)
	})
}
