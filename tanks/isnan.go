package tanks

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var _ ports.Tank = (*IsNaN)(nil)

// IsNaN computes the boolean NaN mask of a tensor. The mask alone cannot
// recover the non-NaN elements, so the tank is lossy and carries the
// original tensor through as a dedicated tube.
type IsNaN struct{}

// NewIsNaN creates an isnan tank.
func NewIsNaN() *IsNaN { return &IsNaN{} }

// TypeName implements ports.Tank.
func (*IsNaN) TypeName() string { return "isnan" }

// SlotKeys implements ports.Tank.
func (*IsNaN) SlotKeys() []string { return []string{slotA} }

// TubeKeys implements ports.Tank.
func (*IsNaN) TubeKeys() []string { return []string{tubeTarget, slotA} }

// Lossy implements ports.Tank.
func (*IsNaN) Lossy() bool { return true }

// Pour computes the NaN mask and carries the original tensor.
func (*IsNaN) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget: a.IsNaNMask(),
		slotA:      a,
	}, nil
}

// Pump restores the carried original.
func (*IsNaN) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(tubes, slotA)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{slotA: a}, nil
}
