package tanks

import (
	"fmt"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var _ ports.Tank = (*Replace)(nil)

// Replace overwrites the elements of a tensor at true mask positions with
// replacement values taken in row-major order. It is a true structural
// inverse: the displaced originals are emitted as the replaced_vals tube,
// and the replacement tensor's shape as replace_with_shape, so pump can
// restore both the original tensor and the exact replace_with slot value.
// Its main use is filling NaNs ahead of arithmetic that could not carry
// them.
type Replace struct{}

// NewReplace creates a replace tank.
func NewReplace() *Replace { return &Replace{} }

// TypeName implements ports.Tank.
func (*Replace) TypeName() string { return "replace" }

// SlotKeys implements ports.Tank.
func (*Replace) SlotKeys() []string { return []string{slotA, "mask", "replace_with"} }

// TubeKeys implements ports.Tank.
func (*Replace) TubeKeys() []string {
	return []string{tubeTarget, "mask", "replaced_vals", "replace_with_shape"}
}

// Lossy implements ports.Tank. Every displaced element is carried.
func (*Replace) Lossy() bool { return false }

// Pour substitutes replace_with into the masked positions of a.
func (*Replace) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, err
	}
	mask, err := wantBoolTensor(slots, "mask")
	if err != nil {
		return nil, err
	}
	replaceWith, err := wantTensor(slots, "replace_with")
	if err != nil {
		return nil, err
	}

	replacedVals, err := a.SelectMask(mask)
	if err != nil {
		return nil, err
	}
	target, err := a.WithMaskReplaced(mask, replaceWith)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget:           target,
		"mask":               mask,
		"replaced_vals":      replacedVals,
		"replace_with_shape": domain.Ints(replaceWith.Shape()),
	}, nil
}

// Pump restores the displaced originals and reconstitutes replace_with at
// its recorded shape.
func (*Replace) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, err := wantTensor(tubes, tubeTarget)
	if err != nil {
		return nil, err
	}
	mask, err := wantBoolTensor(tubes, "mask")
	if err != nil {
		return nil, err
	}
	replacedVals, err := wantTensor(tubes, "replaced_vals")
	if err != nil {
		return nil, err
	}
	shape, err := wantInts(tubes, "replace_with_shape")
	if err != nil {
		return nil, err
	}

	a, err := target.WithMaskReplaced(mask, replacedVals)
	if err != nil {
		return nil, err
	}
	flat, err := target.SelectMask(mask)
	if err != nil {
		return nil, err
	}
	replaceWith, err := flat.Reshape(shape)
	if err != nil {
		return nil, fmt.Errorf("replace_with_shape %v does not fit %d masked values: %w", shape, flat.Size(), err)
	}
	return map[string]domain.Value{
		slotA:          a,
		"mask":         mask,
		"replace_with": replaceWith,
	}, nil
}
