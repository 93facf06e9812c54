// Package tanks provides the built-in tank types: atomic invertible
// operations over tensors. Each type documents how it satisfies the
// round-trip law: either as a true structural inverse, or as a lossy
// computation that carries enough of its original input in dedicated
// tubes for the backward pass to reconstruct the slots exactly.
package tanks

import (
	"fmt"

	"github.com/cascata/waterworks/domain"
)

// Conventional port names shared across tank types.
const (
	slotA           = "a"
	slotB           = "b"
	tubeTarget      = "target"
	tubeSmallerSize = "smaller_size_array"
	tubeAIsSmaller  = "a_is_smaller"
	tubeMissingVals = "missing_vals"
)

func wantTensor(vals map[string]domain.Value, key string) (*domain.Tensor, error) {
	t, ok := vals[key].(*domain.Tensor)
	if !ok {
		return nil, fmt.Errorf("%q: want tensor, got %s: %w", key, domain.KindOf(vals[key]), domain.ErrTypeMismatch)
	}
	return t, nil
}

func wantBoolTensor(vals map[string]domain.Value, key string) (*domain.BoolTensor, error) {
	m, ok := vals[key].(*domain.BoolTensor)
	if !ok {
		return nil, fmt.Errorf("%q: want bool tensor, got %s: %w", key, domain.KindOf(vals[key]), domain.ErrTypeMismatch)
	}
	return m, nil
}

func wantTensorList(vals map[string]domain.Value, key string) (domain.TensorList, error) {
	l, ok := vals[key].(domain.TensorList)
	if !ok {
		return nil, fmt.Errorf("%q: want tensor list, got %s: %w", key, domain.KindOf(vals[key]), domain.ErrTypeMismatch)
	}
	return l, nil
}

func wantInts(vals map[string]domain.Value, key string) (domain.Ints, error) {
	ix, ok := vals[key].(domain.Ints)
	if !ok {
		return nil, fmt.Errorf("%q: want ints, got %s: %w", key, domain.KindOf(vals[key]), domain.ErrTypeMismatch)
	}
	return ix, nil
}

func wantInt(vals map[string]domain.Value, key string) (int, error) {
	i, ok := vals[key].(domain.Int)
	if !ok {
		return 0, fmt.Errorf("%q: want int, got %s: %w", key, domain.KindOf(vals[key]), domain.ErrTypeMismatch)
	}
	return int(i), nil
}

func wantBool(vals map[string]domain.Value, key string) (bool, error) {
	b, ok := vals[key].(domain.Bool)
	if !ok {
		return false, fmt.Errorf("%q: want bool, got %s: %w", key, domain.KindOf(vals[key]), domain.ErrTypeMismatch)
	}
	return bool(b), nil
}

// splitOperands orders a binary tank's operands by size for carrying: the
// smaller operand is threaded through as a pass-through tube and the
// larger one is reconstructed arithmetically during pump.
func splitOperands(a, b *domain.Tensor) (smaller, larger *domain.Tensor, aIsSmaller bool) {
	if a.Size() < b.Size() {
		return a, b, true
	}
	return b, a, false
}
