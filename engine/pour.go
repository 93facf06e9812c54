package engine

import (
	"fmt"
	"time"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

// Pour executes the frozen graph forward. The funnel dictionary supplies
// one value per placeholder (by structured key or string path); a
// placeholder absent from the dictionary falls back to its declared
// default or fails with ErrUnboundPlaceholder. Supplied values are checked
// against the declared placeholder kind.
//
// The result maps every dangling tube (tap) to its computed value, with
// aliased tubes under their alias key, plus any tube requested via
// WithExtraTaps. Pour is deterministic and side-effect free; concurrent
// calls on the same frozen graph are safe, each owning its value store.
func (w *Waterwork) Pour(funnel *ValueDict, opts ...ExecOption) (*ValueDict, error) {
	if !w.Frozen() {
		return nil, domain.ErrNotFrozen
	}
	o := buildExecOptions(opts)
	ctx := w.observeStart(o.ctx, ports.DirectionPour)
	start := time.Now()

	out, err := w.pour(funnel, o)
	w.observeFinish(ctx, ports.DirectionPour, time.Since(start), err)
	return out, err
}

func (w *Waterwork) pour(funnel *ValueDict, o execOptions) (*ValueDict, error) {
	if funnel == nil {
		funnel = NewValueDict()
	}

	// Reject funnel keys that address nothing: the engine never silently
	// drops caller-supplied values.
	for key := range funnel.values {
		if key.Side != domain.SideName || w.placeholders[key.Owner] == nil {
			return nil, domain.NewPortError(key, "pour",
				fmt.Errorf("key does not address a placeholder: %w", domain.ErrInvalidPath))
		}
	}

	phVals := make(map[string]domain.Value, len(w.phOrder))
	for _, p := range w.phOrder {
		v, ok := funnel.Get(p.Key())
		if !ok {
			if p.def == nil {
				return nil, domain.NewPortError(p.Key(), "pour", domain.ErrUnboundPlaceholder)
			}
			v = p.def
		}
		if domain.KindOf(v) != p.kind {
			return nil, domain.NewPortError(p.Key(), "pour",
				fmt.Errorf("placeholder declared %s, got %s: %w", p.kind, domain.KindOf(v), domain.ErrTypeMismatch))
		}
		phVals[p.name] = v
	}

	// Call-local tube store; the graph itself stays untouched.
	tubeVals := make(map[domain.PortKey]domain.Value)
	ctx := o.ctx
	for _, n := range w.topo {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slots := make(map[string]domain.Value, len(n.slots))
		for name, src := range n.slots {
			switch s := src.(type) {
			case literalSource:
				slots[name] = s.value
			case *Placeholder:
				slots[name] = phVals[s.name]
			case TubeRef:
				slots[name] = tubeVals[s.Key()]
			}
		}

		tankStart := time.Now()
		tubes, err := n.tank.Pour(slots)
		w.observeTank(ctx, n.name, ports.DirectionPour, time.Since(tankStart), err)
		if err != nil {
			return nil, fmt.Errorf("tank %s: %w", n.name, err)
		}
		if err := checkTankOutputs(n.name, n.tank.TubeKeys(), tubes, domain.SideTube); err != nil {
			return nil, err
		}
		for tube, v := range tubes {
			tubeVals[domain.TubeKey(n.name, tube)] = v
		}
	}

	out := NewValueDict()
	for _, key := range w.taps {
		v := tubeVals[key]
		if alias, ok := w.aliasOf[key]; ok {
			out.Set(domain.NamedKey(alias), v)
		} else {
			out.Set(key, v)
		}
	}
	for _, tube := range o.extraTaps {
		v, ok := tubeVals[tube.Key()]
		if !ok {
			return nil, domain.NewPortError(tube.Key(), "pour",
				fmt.Errorf("extra tap addresses no tube of this graph: %w", domain.ErrInvalidPath))
		}
		out.Set(tube.Key(), v)
	}
	return out, nil
}
