package tanks

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var (
	_ ports.Tank = (*Transpose)(nil)
	_ ports.Tank = (*Reshape)(nil)
)

// Transpose permutes a tensor's axes. A pure reshuffle and a true
// structural inverse: pump applies the inverse permutation, bit-exact for
// all element values.
type Transpose struct{}

// NewTranspose creates a transpose tank.
func NewTranspose() *Transpose { return &Transpose{} }

// TypeName implements ports.Tank.
func (*Transpose) TypeName() string { return "transpose" }

// SlotKeys implements ports.Tank.
func (*Transpose) SlotKeys() []string { return []string{slotA, "axes"} }

// TubeKeys implements ports.Tank.
func (*Transpose) TubeKeys() []string { return []string{tubeTarget, "axes"} }

// Lossy implements ports.Tank.
func (*Transpose) Lossy() bool { return false }

// Pour permutes the axes of a by the given permutation.
func (*Transpose) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, err
	}
	axes, err := wantInts(slots, "axes")
	if err != nil {
		return nil, err
	}
	target, err := a.Transpose(axes)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{tubeTarget: target, "axes": axes}, nil
}

// Pump applies the inverse permutation.
func (*Transpose) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, err := wantTensor(tubes, tubeTarget)
	if err != nil {
		return nil, err
	}
	axes, err := wantInts(tubes, "axes")
	if err != nil {
		return nil, err
	}
	a, err := target.Transpose(domain.InversePerm(axes))
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{slotA: a, "axes": axes}, nil
}

// Reshape changes a tensor's shape without touching its elements,
// carrying the old shape so pump can restore it exactly.
type Reshape struct{}

// NewReshape creates a reshape tank.
func NewReshape() *Reshape { return &Reshape{} }

// TypeName implements ports.Tank.
func (*Reshape) TypeName() string { return "reshape" }

// SlotKeys implements ports.Tank.
func (*Reshape) SlotKeys() []string { return []string{slotA, "shape"} }

// TubeKeys implements ports.Tank.
func (*Reshape) TubeKeys() []string { return []string{tubeTarget, "old_shape"} }

// Lossy implements ports.Tank.
func (*Reshape) Lossy() bool { return false }

// Pour reshapes a to the requested shape.
func (*Reshape) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, err
	}
	shape, err := wantInts(slots, "shape")
	if err != nil {
		return nil, err
	}
	target, err := a.Reshape(shape)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget:  target,
		"old_shape": domain.Ints(a.Shape()),
	}, nil
}

// Pump restores the carried original shape.
func (*Reshape) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, err := wantTensor(tubes, tubeTarget)
	if err != nil {
		return nil, err
	}
	oldShape, err := wantInts(tubes, "old_shape")
	if err != nil {
		return nil, err
	}
	a, err := target.Reshape(oldShape)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		slotA:   a,
		"shape": domain.Ints(target.Shape()),
	}, nil
}
