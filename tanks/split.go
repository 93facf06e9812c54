package tanks

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var _ ports.Tank = (*Split)(nil)

// Split partitions a tensor along an axis at the given boundary indices.
// It is a true structural inverse: the indices and axis are threaded
// through as pass-through tubes, and pump concatenates the parts along
// the same axis. An empty index list yields a single part equal to the
// whole input, which pumps back with zero concatenation points.
type Split struct{}

// NewSplit creates a split tank.
func NewSplit() *Split { return &Split{} }

// TypeName implements ports.Tank.
func (*Split) TypeName() string { return "split" }

// SlotKeys implements ports.Tank.
func (*Split) SlotKeys() []string { return []string{slotA, "indices", "axis"} }

// TubeKeys implements ports.Tank.
func (*Split) TubeKeys() []string { return []string{tubeTarget, "indices", "axis"} }

// Lossy implements ports.Tank. Split preserves every element.
func (*Split) Lossy() bool { return false }

// Pour splits slot a at the boundary indices along axis.
func (*Split) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, err
	}
	indices, err := wantInts(slots, "indices")
	if err != nil {
		return nil, err
	}
	axis, err := wantInt(slots, "axis")
	if err != nil {
		return nil, err
	}

	parts, err := a.Split(axis, indices)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget: domain.TensorList(parts),
		"indices":  indices,
		"axis":     domain.Int(axis),
	}, nil
}

// Pump concatenates the parts along the carried axis.
func (*Split) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	parts, err := wantTensorList(tubes, tubeTarget)
	if err != nil {
		return nil, err
	}
	indices, err := wantInts(tubes, "indices")
	if err != nil {
		return nil, err
	}
	axis, err := wantInt(tubes, "axis")
	if err != nil {
		return nil, err
	}

	a, err := domain.Concat(axis, parts)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		slotA:     a,
		"indices": indices,
		"axis":    domain.Int(axis),
	}, nil
}
