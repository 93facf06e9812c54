package engine

import (
	"fmt"
	"time"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

// Pump executes the frozen graph backward, reconstructing placeholder
// values from tap values. The tap dictionary is keyed by tube path or tap
// alias; it must cover every tap a reconstruction depends on, including
// the carried-state tubes of lossy tanks. Tanks are visited in reverse
// topological order once all of their tubes are resolved, either from the
// caller's dictionary or from a downstream tank's pump output feeding back
// upstream. Each tube resolves at most once, the caller's value winning
// over a recomputed one. An unresolved tube fails with ErrMissingTapValue.
//
// The result maps every placeholder to its reconstructed value. For a
// graph built from round-trip-correct tanks, Pump(Pour(x)) == x.
func (w *Waterwork) Pump(taps *ValueDict, opts ...ExecOption) (*ValueDict, error) {
	if !w.Frozen() {
		return nil, domain.ErrNotFrozen
	}
	o := buildExecOptions(opts)
	ctx := w.observeStart(o.ctx, ports.DirectionPump)
	start := time.Now()

	out, err := w.pump(taps, o)
	w.observeFinish(ctx, ports.DirectionPump, time.Since(start), err)
	return out, err
}

func (w *Waterwork) pump(taps *ValueDict, o execOptions) (*ValueDict, error) {
	if taps == nil {
		taps = NewValueDict()
	}

	// Seed the call-local tube store from the caller's dictionary,
	// translating tap aliases to their tube keys.
	tubeVals := make(map[domain.PortKey]domain.Value, taps.Len())
	for key, v := range taps.values {
		resolved := key
		if key.Side == domain.SideName {
			tube, ok := w.aliases[key.Owner]
			if !ok {
				return nil, domain.NewPortError(key, "pump",
					fmt.Errorf("key does not address a tap alias: %w", domain.ErrInvalidPath))
			}
			resolved = tube
		}
		if resolved.Side != domain.SideTube {
			return nil, domain.NewPortError(key, "pump",
				fmt.Errorf("key does not address a tube: %w", domain.ErrInvalidPath))
		}
		owner, ok := w.nodes[resolved.Owner]
		if !ok || !hasKey(owner.tank.TubeKeys(), resolved.Port) {
			return nil, domain.NewPortError(key, "pump",
				fmt.Errorf("key does not address a tube of this graph: %w", domain.ErrInvalidPath))
		}
		tubeVals[resolved] = v
	}

	result := NewValueDict()
	ctx := o.ctx
	for i := len(w.topo) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := w.topo[i]

		tubes := make(map[string]domain.Value, len(n.tank.TubeKeys()))
		for _, tube := range n.tank.TubeKeys() {
			v, ok := tubeVals[domain.TubeKey(n.name, tube)]
			if !ok {
				return nil, domain.NewPortError(domain.TubeKey(n.name, tube), "pump", domain.ErrMissingTapValue)
			}
			tubes[tube] = v
		}

		tankStart := time.Now()
		slots, err := n.tank.Pump(tubes)
		w.observeTank(ctx, n.name, ports.DirectionPump, time.Since(tankStart), err)
		if err != nil {
			return nil, fmt.Errorf("tank %s: %w", n.name, err)
		}
		if err := checkTankOutputs(n.name, n.tank.SlotKeys(), slots, domain.SideSlot); err != nil {
			return nil, err
		}

		// Route recovered slot values upstream: placeholders to the
		// result, tube-wired slots back into the tube store. Literal
		// slots need no routing. First resolution wins throughout.
		for slot, v := range slots {
			switch s := n.slots[slot].(type) {
			case *Placeholder:
				if _, ok := result.Get(s.Key()); !ok {
					result.Set(s.Key(), v)
				}
			case TubeRef:
				if _, ok := tubeVals[s.Key()]; !ok {
					tubeVals[s.Key()] = v
				}
			}
		}
	}
	return result, nil
}
