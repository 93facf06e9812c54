package domain

import "slices"

// Kind identifies the payload type flowing along a port. Ports declare an
// expected kind; the engine checks boundary values against it but never
// interprets array contents beyond what a tank's own logic requires.
type Kind int

// Supported value kinds.
const (
	KindInvalid Kind = iota
	KindTensor
	KindBoolTensor
	KindTensorList
	KindInts
	KindInt
	KindFloat
	KindBool
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTensor:
		return "tensor"
	case KindBoolTensor:
		return "bool_tensor"
	case KindTensorList:
		return "tensor_list"
	case KindInts:
		return "ints"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is the opaque typed payload flowing along a port: a tensor, a
// boolean mask, a list of tensors, or a small auxiliary scalar/index
// structure. The concrete types form a closed union; Equal is exact
// (NaN compares equal to NaN) so that round-trip identity is decidable.
type Value interface {
	Kind() Kind
	Equal(Value) bool
}

// Kind implements Value.
func (t *Tensor) Kind() Kind { return KindTensor }

// Equal implements Value.
func (t *Tensor) Equal(v Value) bool {
	o, ok := v.(*Tensor)
	return ok && t.EqualTensor(o)
}

// Kind implements Value.
func (m *BoolTensor) Kind() Kind { return KindBoolTensor }

// Equal implements Value.
func (m *BoolTensor) Equal(v Value) bool {
	o, ok := v.(*BoolTensor)
	return ok && m.EqualBool(o)
}

// TensorList is an ordered list of tensors, produced by operations such as
// split that partition one array into several.
type TensorList []*Tensor

// Kind implements Value.
func (l TensorList) Kind() Kind { return KindTensorList }

// Equal implements Value.
func (l TensorList) Equal(v Value) bool {
	o, ok := v.(TensorList)
	if !ok || len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].EqualTensor(o[i]) {
			return false
		}
	}
	return true
}

// Ints is an index list, axis set, or shape.
type Ints []int

// Kind implements Value.
func (ix Ints) Kind() Kind { return KindInts }

// Equal implements Value.
func (ix Ints) Equal(v Value) bool {
	o, ok := v.(Ints)
	return ok && slices.Equal(ix, o)
}

// Int is a scalar integer value, typically an axis.
type Int int

// Kind implements Value.
func (Int) Kind() Kind { return KindInt }

// Equal implements Value.
func (i Int) Equal(v Value) bool {
	o, ok := v.(Int)
	return ok && i == o
}

// Float is a scalar floating-point value.
type Float float64

// Kind implements Value.
func (Float) Kind() Kind { return KindFloat }

// Equal implements Value.
func (f Float) Equal(v Value) bool {
	o, ok := v.(Float)
	if !ok {
		return false
	}
	return sameElem(float64(f), float64(o))
}

// Bool is a scalar boolean value.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// Equal implements Value.
func (b Bool) Equal(v Value) bool {
	o, ok := v.(Bool)
	return ok && b == o
}

// KindOf returns the kind of v, or KindInvalid for nil.
func KindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}
