package tanks

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var (
	_ ports.Tank = (*Add)(nil)
	_ ports.Tank = (*Sub)(nil)
)

// Add computes the element-wise broadcast sum a + b. The smaller operand
// is carried through as the smaller_size_array tube together with an
// a_is_smaller flag; pump recovers the larger operand by subtracting the
// carried one from the target. Structural inverse up to floating-point
// arithmetic: the operation genuinely alters the data, so exactness holds
// whenever the arithmetic itself is exact.
type Add struct{}

// NewAdd creates an add tank.
func NewAdd() *Add { return &Add{} }

// TypeName implements ports.Tank.
func (*Add) TypeName() string { return "add" }

// SlotKeys implements ports.Tank.
func (*Add) SlotKeys() []string { return []string{slotA, slotB} }

// TubeKeys implements ports.Tank.
func (*Add) TubeKeys() []string { return []string{tubeTarget, tubeSmallerSize, tubeAIsSmaller} }

// Lossy implements ports.Tank. The carried operand preserves both inputs.
func (*Add) Lossy() bool { return false }

// Pour computes a + b and carries the smaller operand.
func (*Add) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, b, err := binaryOperands(slots)
	if err != nil {
		return nil, err
	}
	target, err := domain.Add(a, b)
	if err != nil {
		return nil, err
	}
	smaller, _, aIsSmaller := splitOperands(a, b)
	return map[string]domain.Value{
		tubeTarget:      target,
		tubeSmallerSize: smaller,
		tubeAIsSmaller:  domain.Bool(aIsSmaller),
	}, nil
}

// Pump recovers the larger operand as target minus the carried one.
func (*Add) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, smaller, aIsSmaller, err := binaryCarried(tubes)
	if err != nil {
		return nil, err
	}
	larger, err := domain.Sub(target, smaller)
	if err != nil {
		return nil, err
	}
	if aIsSmaller {
		return map[string]domain.Value{slotA: smaller, slotB: larger}, nil
	}
	return map[string]domain.Value{slotA: larger, slotB: smaller}, nil
}

// Sub computes the element-wise broadcast difference a - b, carrying the
// smaller operand like Add. Pump adds the carried operand back (or
// subtracts the target from it, when a was the carried side).
type Sub struct{}

// NewSub creates a sub tank.
func NewSub() *Sub { return &Sub{} }

// TypeName implements ports.Tank.
func (*Sub) TypeName() string { return "sub" }

// SlotKeys implements ports.Tank.
func (*Sub) SlotKeys() []string { return []string{slotA, slotB} }

// TubeKeys implements ports.Tank.
func (*Sub) TubeKeys() []string { return []string{tubeTarget, tubeSmallerSize, tubeAIsSmaller} }

// Lossy implements ports.Tank.
func (*Sub) Lossy() bool { return false }

// Pour computes a - b and carries the smaller operand.
func (*Sub) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	a, b, err := binaryOperands(slots)
	if err != nil {
		return nil, err
	}
	target, err := domain.Sub(a, b)
	if err != nil {
		return nil, err
	}
	smaller, _, aIsSmaller := splitOperands(a, b)
	return map[string]domain.Value{
		tubeTarget:      target,
		tubeSmallerSize: smaller,
		tubeAIsSmaller:  domain.Bool(aIsSmaller),
	}, nil
}

// Pump inverts the subtraction around the carried operand.
func (*Sub) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, smaller, aIsSmaller, err := binaryCarried(tubes)
	if err != nil {
		return nil, err
	}
	if aIsSmaller {
		// target = a - b with a carried, so b = a - target.
		b, err := domain.Sub(smaller, target)
		if err != nil {
			return nil, err
		}
		return map[string]domain.Value{slotA: smaller, slotB: b}, nil
	}
	// target = a - b with b carried, so a = target + b.
	a, err := domain.Add(target, smaller)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{slotA: a, slotB: smaller}, nil
}

func binaryOperands(slots map[string]domain.Value) (*domain.Tensor, *domain.Tensor, error) {
	a, err := wantTensor(slots, slotA)
	if err != nil {
		return nil, nil, err
	}
	b, err := wantTensor(slots, slotB)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func binaryCarried(tubes map[string]domain.Value) (target, smaller *domain.Tensor, aIsSmaller bool, err error) {
	if target, err = wantTensor(tubes, tubeTarget); err != nil {
		return nil, nil, false, err
	}
	if smaller, err = wantTensor(tubes, tubeSmallerSize); err != nil {
		return nil, nil, false, err
	}
	if aIsSmaller, err = wantBool(tubes, tubeAIsSmaller); err != nil {
		return nil, nil, false, err
	}
	return target, smaller, aIsSmaller, nil
}
