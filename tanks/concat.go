package tanks

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var _ ports.Tank = (*Concat)(nil)

// Concat joins a list of tensors along an axis. It is a true structural
// inverse: pour additionally emits the interior boundary indices of the
// parts, and pump splits the joined tensor at those indices to recover
// the original list exactly.
type Concat struct{}

// NewConcat creates a concat tank.
func NewConcat() *Concat { return &Concat{} }

// TypeName implements ports.Tank.
func (*Concat) TypeName() string { return "concat" }

// SlotKeys implements ports.Tank.
func (*Concat) SlotKeys() []string { return []string{"a_list", "axis"} }

// TubeKeys implements ports.Tank.
func (*Concat) TubeKeys() []string { return []string{tubeTarget, "indices", "axis"} }

// Lossy implements ports.Tank. The boundary indices preserve the
// partition.
func (*Concat) Lossy() bool { return false }

// Pour concatenates the parts along axis and records their boundaries.
func (*Concat) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	parts, err := wantTensorList(slots, "a_list")
	if err != nil {
		return nil, err
	}
	axis, err := wantInt(slots, "axis")
	if err != nil {
		return nil, err
	}

	target, err := domain.Concat(axis, parts)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget: target,
		"indices":  domain.Ints(domain.Boundaries(axis, parts)),
		"axis":     domain.Int(axis),
	}, nil
}

// Pump splits the joined tensor at the carried boundaries.
func (*Concat) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, err := wantTensor(tubes, tubeTarget)
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

	parts, err := target.Split(axis, indices)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		"a_list": domain.TensorList(parts),
		"axis":   domain.Int(axis),
	}, nil
}
