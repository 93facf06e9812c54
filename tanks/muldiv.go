package tanks

import (
	"fmt"
	"slices"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

var (
	_ ports.Tank = (*Mul)(nil)
	_ ports.Tank = (*Div)(nil)
)

// Mul computes the element-wise broadcast product a * b. Beyond carrying
// the smaller operand like Add, multiplication is lossy wherever the
// carried operand is zero (the product there is zero regardless of the
// other factor), so pour also emits missing_vals: the larger operand's
// elements at those positions, letting pump patch the division-based
// reconstruction exactly.
//
// The larger operand's shape must equal the broadcast result shape;
// otherwise the lost positions could not be indexed back.
type Mul struct{}

// NewMul creates a mul tank.
func NewMul() *Mul { return &Mul{} }

// TypeName implements ports.Tank.
func (*Mul) TypeName() string { return "mul" }

// SlotKeys implements ports.Tank.
func (*Mul) SlotKeys() []string { return []string{slotA, slotB} }

// TubeKeys implements ports.Tank.
func (*Mul) TubeKeys() []string {
	return []string{tubeTarget, tubeSmallerSize, tubeAIsSmaller, tubeMissingVals}
}

// Lossy implements ports.Tank.
func (*Mul) Lossy() bool { return true }

// Pour computes a * b, carrying the smaller operand and the elements
// erased by zero multipliers.
func (*Mul) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	return mulDivPour(slots, domain.Mul)
}

// Pump divides the target by the carried operand and patches the
// positions erased by zeros from missing_vals.
func (*Mul) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, smaller, aIsSmaller, err := binaryCarried(tubes)
	if err != nil {
		return nil, err
	}
	missing, err := wantTensor(tubes, tubeMissingVals)
	if err != nil {
		return nil, err
	}

	larger, err := domain.Div(target, smaller)
	if err != nil {
		return nil, err
	}
	larger, err = patchZeroPositions(larger, smaller, missing)
	if err != nil {
		return nil, err
	}
	if aIsSmaller {
		return map[string]domain.Value{slotA: smaller, slotB: larger}, nil
	}
	return map[string]domain.Value{slotA: larger, slotB: smaller}, nil
}

// Div computes the element-wise broadcast quotient a / b. Division is
// lossy wherever the carried operand is zero: with b carried, a zero
// divisor erases a; with a carried, a zero numerator erases b. Those
// elements of the larger operand are emitted as missing_vals, exactly as
// in Mul, and patched back in during pump.
type Div struct{}

// NewDiv creates a div tank.
func NewDiv() *Div { return &Div{} }

// TypeName implements ports.Tank.
func (*Div) TypeName() string { return "div" }

// SlotKeys implements ports.Tank.
func (*Div) SlotKeys() []string { return []string{slotA, slotB} }

// TubeKeys implements ports.Tank.
func (*Div) TubeKeys() []string {
	return []string{tubeTarget, tubeSmallerSize, tubeAIsSmaller, tubeMissingVals}
}

// Lossy implements ports.Tank.
func (*Div) Lossy() bool { return true }

// Pour computes a / b, carrying the smaller operand and the elements
// erased by zeros in it.
func (*Div) Pour(slots map[string]domain.Value) (map[string]domain.Value, error) {
	return mulDivPour(slots, domain.Div)
}

// Pump inverts the division around the carried operand and patches the
// erased positions from missing_vals.
func (*Div) Pump(tubes map[string]domain.Value) (map[string]domain.Value, error) {
	target, smaller, aIsSmaller, err := binaryCarried(tubes)
	if err != nil {
		return nil, err
	}
	missing, err := wantTensor(tubes, tubeMissingVals)
	if err != nil {
		return nil, err
	}

	var larger *domain.Tensor
	if aIsSmaller {
		// target = a / b with a carried, so b = a / target.
		larger, err = domain.Div(smaller, target)
	} else {
		// target = a / b with b carried, so a = target * b.
		larger, err = domain.Mul(target, smaller)
	}
	if err != nil {
		return nil, err
	}
	larger, err = patchZeroPositions(larger, smaller, missing)
	if err != nil {
		return nil, err
	}
	if aIsSmaller {
		return map[string]domain.Value{slotA: smaller, slotB: larger}, nil
	}
	return map[string]domain.Value{slotA: larger, slotB: smaller}, nil
}

func mulDivPour(slots map[string]domain.Value, op func(a, b *domain.Tensor) (*domain.Tensor, error)) (map[string]domain.Value, error) {
	a, b, err := binaryOperands(slots)
	if err != nil {
		return nil, err
	}
	target, err := op(a, b)
	if err != nil {
		return nil, err
	}
	smaller, larger, aIsSmaller := splitOperands(a, b)
	if !slices.Equal(larger.Shape(), target.Shape()) {
		return nil, fmt.Errorf("operand shape %v does not span result shape %v, lost elements cannot be carried: %w",
			larger.Shape(), target.Shape(), domain.ErrShapeMismatch)
	}

	zeros, err := domain.ZeroMask(larger, smaller)
	if err != nil {
		return nil, err
	}
	missing, err := larger.SelectMask(zeros)
	if err != nil {
		return nil, err
	}
	return map[string]domain.Value{
		tubeTarget:      target,
		tubeSmallerSize: smaller,
		tubeAIsSmaller:  domain.Bool(aIsSmaller),
		tubeMissingVals: missing,
	}, nil
}

// patchZeroPositions overwrites larger's elements wherever the carried
// operand's broadcast value is zero, restoring them from missing.
func patchZeroPositions(larger, smaller, missing *domain.Tensor) (*domain.Tensor, error) {
	zeros, err := domain.ZeroMask(larger, smaller)
	if err != nil {
		return nil, err
	}
	return larger.WithMaskReplaced(zeros, missing)
}
