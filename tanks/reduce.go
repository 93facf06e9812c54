package tanks

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var (
	_ ports.Tank = (*Max)(nil)
	_ ports.Tank = (*Min)(nil)
)

// Max reduces a tensor to its maxima over an axis set (an empty set
// reduces over all axes). The reduction discards the non-maximal
// elements, so the tank is lossy: the original tensor is carried through
// as a dedicated tube and pump returns it unchanged. The maxima alone are
// never sufficient to invert.
type Max struct{}

// NewMax creates a max-reduction tank.
func NewMax() *Max { return &Max{} }

// TypeName implements ports.Tank.
func (*Max) TypeName() string { return "max" }

// SlotKeys implements ports.Tank.
func (*Max) SlotKeys() []string { return []string{slotA, "axes"} }

// TubeKeys implements ports.Tank.
func (*Max) TubeKeys() []string { return []string{tubeTarget, slotA, "axes"} }

// Lossy implements ports.Tank.
func (*Max) Lossy() bool { return true }

// Pour computes the maxima and carries the original tensor.
func (*Max) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	return reducePour(slots, (*domain.Tensor).ReduceMax)
}

// Pump restores the carried original.
func (*Max) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	return reducePump(tubes)
}

// Min is the minimum-reduction counterpart of Max, with the same carried
// original tube.
type Min struct{}

// NewMin creates a min-reduction tank.
func NewMin() *Min { return &Min{} }

// TypeName implements ports.Tank.
func (*Min) TypeName() string { return "min" }

// SlotKeys implements ports.Tank.
func (*Min) SlotKeys() []string { return []string{slotA, "axes"} }

// TubeKeys implements ports.Tank.
func (*Min) TubeKeys() []string { return []string{tubeTarget, slotA, "axes"} }

// Lossy implements ports.Tank.
func (*Min) Lossy() bool { return true }

// Pour computes the minima and carries the original tensor.
func (*Min) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	return reducePour(slots, (*domain.Tensor).ReduceMin)
}

// Pump restores the carried original.
func (*Min) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	return reducePump(tubes)
}

func reducePour(slots map[string]domain.Value, reduce func(*domain.Tensor, []int) (*domain.Tensor, error)) (map[string]domain.Value, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, err
	}
	axes, err := wantInts(slots, "axes")
	if err != nil {
		return nil, err
	}

	target, err := reduce(a, axes)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget: target,
		slotA:      a,
		"axes":     axes,
	}, nil
}

func reducePump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(tubes, slotA)
	if err != nil {
		return nil, err
	}
	axes, err := wantInts(tubes, "axes")
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		slotA:  a,
		"axes": axes,
	}, nil
}
