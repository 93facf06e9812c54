// Package domain contains pure, dependency-light domain models for the
// waterworks engine: the tensor value model, port descriptors, and the
// error taxonomy shared by every other layer.
package domain

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense, row-major n-dimensional array of float64 values.
// A Tensor with an empty shape holds exactly one element and behaves as
// a scalar. Tensors are treated as immutable by the engine; operations
// return new instances and never alias the receiver's backing data.
type Tensor struct {
	shape []int
	data  []float64
}

// NewTensor creates a tensor with the given shape backed by a copy of data.
// The length of data must equal the product of the shape dimensions.
func NewTensor(shape []int, data []float64) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension %d in shape %v: %w", d, shape, ErrShapeMismatch)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, got %d: %w", shape, n, len(data), ErrShapeMismatch)
	}
	return &Tensor{shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

// MustTensor is NewTensor that panics on error. Intended for literals in
// construction code and tests where the shape is known to be valid.
func MustTensor(shape []int, data []float64) *Tensor {
	t, err := NewTensor(shape, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Vector creates a 1-D tensor from the given values.
func Vector(data ...float64) *Tensor {
	return &Tensor{shape: []int{len(data)}, data: slices.Clone(data)}
}

// Scalar creates a 0-D tensor holding a single value.
func Scalar(v float64) *Tensor {
	return &Tensor{shape: []int{}, data: []float64{v}}
}

// Zeros creates a tensor of the given shape filled with zeros.
func Zeros(shape []int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{shape: slices.Clone(shape), data: make([]float64, n)}
}

// Full creates a tensor of the given shape with every element set to v.
func Full(shape []int, v float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = v
	}
	return t
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Size returns the total number of elements.
func (t *Tensor) Size() int { return len(t.data) }

// Data returns a copy of the flat row-major element slice.
func (t *Tensor) Data() []float64 { return slices.Clone(t.data) }

// Item returns the single element of a scalar-sized tensor.
func (t *Tensor) Item() (float64, error) {
	if len(t.data) != 1 {
		return 0, fmt.Errorf("tensor of size %d is not a scalar: %w", len(t.data), ErrShapeMismatch)
	}
	return t.data[0], nil
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// sameElem reports whether two elements are identical, treating NaN as
// equal to NaN so that arrays carrying missing values round-trip cleanly.
func sameElem(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

// EqualTensor reports exact equality of shape and elements.
// NaN elements compare equal to NaN.
func (t *Tensor) EqualTensor(o *Tensor) bool {
	if o == nil || !slices.Equal(t.shape, o.shape) {
		return false
	}
	for i := range t.data {
		if !sameElem(t.data[i], o.data[i]) {
			return false
		}
	}
	return true
}

// strides returns the row-major stride of each dimension.
func (t *Tensor) strides() []int {
	s := make([]int, len(t.shape))
	acc := 1
	for i := len(t.shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= t.shape[i]
	}
	return s
}

func (t *Tensor) checkAxis(axis int) error {
	if axis < 0 || axis >= len(t.shape) {
		return fmt.Errorf("axis %d out of range for rank %d: %w", axis, len(t.shape), ErrShapeMismatch)
	}
	return nil
}

// Split partitions the tensor along axis at the given boundary indices,
// producing len(indices)+1 parts. Indices must be non-decreasing; each is
// clamped to the axis length. An empty index list yields a single part
// equal to the whole tensor.
func (t *Tensor) Split(axis int, indices []int) ([]*Tensor, error) {
	if err := t.checkAxis(axis); err != nil {
		return nil, err
	}
	dim := t.shape[axis]
	bounds := make([]int, 0, len(indices)+2)
	bounds = append(bounds, 0)
	prev := 0
	for _, ix := range indices {
		ix = min(max(ix, 0), dim)
		if ix < prev {
			return nil, fmt.Errorf("split indices %v not non-decreasing: %w", indices, ErrShapeMismatch)
		}
		bounds = append(bounds, ix)
		prev = ix
	}
	bounds = append(bounds, dim)

	// outer = product of dims before axis, inner = product after.
	outer, inner := 1, 1
	for _, d := range t.shape[:axis] {
		outer *= d
	}
	for _, d := range t.shape[axis+1:] {
		inner *= d
	}

	parts := make([]*Tensor, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		lo, hi := bounds[i], bounds[i+1]
		shape := slices.Clone(t.shape)
		shape[axis] = hi - lo
		data := make([]float64, 0, outer*(hi-lo)*inner)
		for o := 0; o < outer; o++ {
			base := o * dim * inner
			data = append(data, t.data[base+lo*inner:base+hi*inner]...)
		}
		parts = append(parts, &Tensor{shape: shape, data: data})
	}
	return parts, nil
}

// Concat joins the parts along axis. All parts must agree on every
// dimension other than axis. The companion Boundaries function yields the
// split points that invert the operation.
func Concat(axis int, parts []*Tensor) (*Tensor, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("concat of zero parts: %w", ErrShapeMismatch)
	}
	first := parts[0]
	if axis < 0 || axis >= len(first.shape) {
		return nil, fmt.Errorf("axis %d out of range for rank %d: %w", axis, len(first.shape), ErrShapeMismatch)
	}
	total := 0
	for _, p := range parts {
		if len(p.shape) != len(first.shape) {
			return nil, fmt.Errorf("concat rank mismatch %v vs %v: %w", p.shape, first.shape, ErrShapeMismatch)
		}
		for d := range p.shape {
			if d != axis && p.shape[d] != first.shape[d] {
				return nil, fmt.Errorf("concat dimension %d disagrees: %v vs %v: %w", d, p.shape, first.shape, ErrShapeMismatch)
			}
		}
		total += p.shape[axis]
	}

	shape := slices.Clone(first.shape)
	shape[axis] = total
	outer, inner := 1, 1
	for _, d := range shape[:axis] {
		outer *= d
	}
	for _, d := range shape[axis+1:] {
		inner *= d
	}

	data := make([]float64, 0, outer*total*inner)
	for o := 0; o < outer; o++ {
		for _, p := range parts {
			w := p.shape[axis] * inner
			data = append(data, p.data[o*w:(o+1)*w]...)
		}
	}
	return &Tensor{shape: shape, data: data}, nil
}

// Boundaries returns the interior split points along axis that reproduce
// the given parts when passed to Split on the concatenated tensor.
func Boundaries(axis int, parts []*Tensor) []int {
	ix := make([]int, 0, max(len(parts)-1, 0))
	acc := 0
	for _, p := range parts[:max(len(parts)-1, 0)] {
		acc += p.shape[axis]
		ix = append(ix, acc)
	}
	return ix
}

// reduce folds elements over the given axis set with fn and init.
// An empty axis set reduces over every axis, yielding a 0-D tensor.
func (t *Tensor) reduce(axes []int, init float64, fn func(acc, v float64) float64) (*Tensor, error) {
	drop := make([]bool, len(t.shape))
	if len(axes) == 0 {
		for i := range drop {
			drop[i] = true
		}
	}
	for _, ax := range axes {
		if err := t.checkAxis(ax); err != nil {
			return nil, err
		}
		if drop[ax] {
			return nil, fmt.Errorf("duplicate axis %d in %v: %w", ax, axes, ErrShapeMismatch)
		}
		drop[ax] = true
	}

	outShape := make([]int, 0, len(t.shape))
	for i, d := range t.shape {
		if !drop[i] {
			outShape = append(outShape, d)
		}
	}
	out := Full(outShape, init)
	outStrides := out.strides()

	idx := make([]int, len(t.shape))
	strides := t.strides()
	for flat := range t.data {
		rem := flat
		oflat := 0
		oi := 0
		for i := range t.shape {
			idx[i] = rem / strides[i]
			rem %= strides[i]
			if !drop[i] {
				oflat += idx[i] * outStrides[oi]
				oi++
			}
		}
		out.data[oflat] = fn(out.data[oflat], t.data[flat])
	}
	return out, nil
}

// ReduceMax computes the maximum over the given axis set.
// An empty axis set reduces to a 0-D tensor over all elements.
func (t *Tensor) ReduceMax(axes []int) (*Tensor, error) {
	if len(t.data) == 0 {
		return nil, fmt.Errorf("max of empty tensor: %w", ErrShapeMismatch)
	}
	return t.reduce(axes, math.Inf(-1), math.Max)
}

// ReduceMin computes the minimum over the given axis set.
func (t *Tensor) ReduceMin(axes []int) (*Tensor, error) {
	if len(t.data) == 0 {
		return nil, fmt.Errorf("min of empty tensor: %w", ErrShapeMismatch)
	}
	return t.reduce(axes, math.Inf(1), math.Min)
}

// Transpose permutes the tensor's axes. perm must be a permutation of
// [0, rank).
func (t *Tensor) Transpose(perm []int) (*Tensor, error) {
	if len(perm) != len(t.shape) {
		return nil, fmt.Errorf("permutation %v does not match rank %d: %w", perm, len(t.shape), ErrShapeMismatch)
	}
	seen := make([]bool, len(perm))
	shape := make([]int, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("%v is not a permutation: %w", perm, ErrShapeMismatch)
		}
		seen[p] = true
		shape[i] = t.shape[p]
	}

	out := Zeros(shape)
	inStrides := t.strides()
	outStrides := out.strides()
	idx := make([]int, len(t.shape))
	for flat := range t.data {
		rem := flat
		for i := range t.shape {
			idx[i] = rem / inStrides[i]
			rem %= inStrides[i]
		}
		oflat := 0
		for i, p := range perm {
			oflat += idx[p] * outStrides[i]
		}
		out.data[oflat] = t.data[flat]
	}
	return out, nil
}

// InversePerm returns the permutation that undoes perm.
func InversePerm(perm []int) []int {
	inv := make([]int, len(perm))
	for i, p := range perm {
		inv[p] = i
	}
	return inv
}

// Reshape returns a tensor with the same elements and a new shape of
// identical total size.
func (t *Tensor) Reshape(shape []int) (*Tensor, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v: %w", shape, ErrShapeMismatch)
		}
		n *= d
	}
	if n != len(t.data) {
		return nil, fmt.Errorf("cannot reshape %v into %v: %w", t.shape, shape, ErrShapeMismatch)
	}
	return &Tensor{shape: slices.Clone(shape), data: slices.Clone(t.data)}, nil
}

// IsNaNMask returns a boolean tensor marking NaN elements.
func (t *Tensor) IsNaNMask() *BoolTensor {
	m := &BoolTensor{shape: slices.Clone(t.shape), data: make([]bool, len(t.data))}
	for i, v := range t.data {
		m.data[i] = math.IsNaN(v)
	}
	return m
}

// SelectMask returns a 1-D tensor of the elements at true mask positions,
// in row-major order.
func (t *Tensor) SelectMask(mask *BoolTensor) (*Tensor, error) {
	if !slices.Equal(t.shape, mask.shape) {
		return nil, fmt.Errorf("mask shape %v does not match %v: %w", mask.shape, t.shape, ErrShapeMismatch)
	}
	sel := make([]float64, 0, mask.CountTrue())
	for i, on := range mask.data {
		if on {
			sel = append(sel, t.data[i])
		}
	}
	return &Tensor{shape: []int{len(sel)}, data: sel}, nil
}

// WithMaskReplaced returns a copy with the true mask positions overwritten
// by vals' elements taken in row-major order. vals must hold exactly one
// element per true mask position.
func (t *Tensor) WithMaskReplaced(mask *BoolTensor, vals *Tensor) (*Tensor, error) {
	if !slices.Equal(t.shape, mask.shape) {
		return nil, fmt.Errorf("mask shape %v does not match %v: %w", mask.shape, t.shape, ErrShapeMismatch)
	}
	if vals.Size() != mask.CountTrue() {
		return nil, fmt.Errorf("%d replacement values for %d masked positions: %w", vals.Size(), mask.CountTrue(), ErrShapeMismatch)
	}
	out := t.Clone()
	j := 0
	for i, on := range mask.data {
		if on {
			out.data[i] = vals.data[j]
			j++
		}
	}
	return out, nil
}

// broadcastShape computes the NumPy-style broadcast shape of a and b:
// shapes align at their trailing dimensions and each pair must be equal or
// contain a 1.
func broadcastShape(a, b []int) ([]int, error) {
	n := max(len(a), len(b))
	out := make([]int, n)
	for i := 0; i < n; i++ {
		da, db := 1, 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		if i < len(b) {
			db = b[len(b)-1-i]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
		case db == 1:
			out[n-1-i] = da
		default:
			return nil, fmt.Errorf("shapes %v and %v are not broadcastable: %w", a, b, ErrShapeMismatch)
		}
	}
	return out, nil
}

// broadcastOffset maps a multi-index in the broadcast result shape to the
// flat offset of the operand with shape src.
func broadcastOffset(src []int, srcStrides []int, idx []int) int {
	off := 0
	shift := len(idx) - len(src)
	for i, d := range src {
		if d != 1 {
			off += idx[shift+i] * srcStrides[i]
		}
	}
	return off
}

// Apply2 evaluates fn element-wise over a and b with NumPy broadcasting.
func Apply2(a, b *Tensor, fn func(x, y float64) float64) (*Tensor, error) {
	shape, err := broadcastShape(a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	out := Zeros(shape)
	if slices.Equal(a.shape, b.shape) {
		for i := range out.data {
			out.data[i] = fn(a.data[i], b.data[i])
		}
		return out, nil
	}

	as, bs := a.strides(), b.strides()
	outStrides := out.strides()
	idx := make([]int, len(shape))
	for flat := range out.data {
		rem := flat
		for i := range shape {
			idx[i] = rem / outStrides[i]
			rem %= outStrides[i]
		}
		out.data[flat] = fn(a.data[broadcastOffset(a.shape, as, idx)], b.data[broadcastOffset(b.shape, bs, idx)])
	}
	return out, nil
}

// Add returns the element-wise broadcast sum a + b.
func Add(a, b *Tensor) (*Tensor, error) {
	if slices.Equal(a.shape, b.shape) {
		out := a.Clone()
		floats.Add(out.data, b.data)
		return out, nil
	}
	return Apply2(a, b, func(x, y float64) float64 { return x + y })
}

// Sub returns the element-wise broadcast difference a - b.
func Sub(a, b *Tensor) (*Tensor, error) {
	if slices.Equal(a.shape, b.shape) {
		out := a.Clone()
		floats.Sub(out.data, b.data)
		return out, nil
	}
	return Apply2(a, b, func(x, y float64) float64 { return x - y })
}

// Mul returns the element-wise broadcast product a * b.
func Mul(a, b *Tensor) (*Tensor, error) {
	if slices.Equal(a.shape, b.shape) {
		out := a.Clone()
		floats.Mul(out.data, b.data)
		return out, nil
	}
	return Apply2(a, b, func(x, y float64) float64 { return x * y })
}

// Div returns the element-wise broadcast quotient a / b.
func Div(a, b *Tensor) (*Tensor, error) {
	if slices.Equal(a.shape, b.shape) {
		out := a.Clone()
		floats.Div(out.data, b.data)
		return out, nil
	}
	return Apply2(a, b, func(x, y float64) float64 { return x / y })
}

// ZeroMask returns a boolean tensor over the broadcast shape of ref and b
// marking positions where b's broadcast element equals zero. It is used by
// the mul and div tanks to locate positions whose forward result cannot be
// inverted arithmetically.
func ZeroMask(ref, b *Tensor) (*BoolTensor, error) {
	shape, err := broadcastShape(ref.shape, b.shape)
	if err != nil {
		return nil, err
	}
	m := &BoolTensor{shape: shape, data: make([]bool, sizeOf(shape))}
	bs := b.strides()
	strides := stridesOf(shape)
	idx := make([]int, len(shape))
	for flat := range m.data {
		rem := flat
		for i := range shape {
			idx[i] = rem / strides[i]
			rem %= strides[i]
		}
		m.data[flat] = b.data[broadcastOffset(b.shape, bs, idx)] == 0
	}
	return m, nil
}

// BroadcastTo materializes the tensor at the given broadcast-compatible
// shape.
func (t *Tensor) BroadcastTo(shape []int) (*Tensor, error) {
	bshape, err := broadcastShape(t.shape, shape)
	if err != nil || !slices.Equal(bshape, shape) {
		return nil, fmt.Errorf("cannot broadcast %v to %v: %w", t.shape, shape, ErrShapeMismatch)
	}
	out := Zeros(shape)
	ts := t.strides()
	strides := out.strides()
	idx := make([]int, len(shape))
	for flat := range out.data {
		rem := flat
		for i := range shape {
			idx[i] = rem / strides[i]
			rem %= strides[i]
		}
		out.data[flat] = t.data[broadcastOffset(t.shape, ts, idx)]
	}
	return out, nil
}

func sizeOf(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func stridesOf(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// BoolTensor is a dense, row-major n-dimensional boolean array, used for
// NaN masks and other element-wise predicates.
type BoolTensor struct {
	shape []int
	data  []bool
}

// NewBoolTensor creates a boolean tensor with the given shape backed by a
// copy of data.
func NewBoolTensor(shape []int, data []bool) (*BoolTensor, error) {
	if sizeOf(shape) != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, got %d: %w", shape, sizeOf(shape), len(data), ErrShapeMismatch)
	}
	return &BoolTensor{shape: slices.Clone(shape), data: slices.Clone(data)}, nil
}

// MustBoolTensor is NewBoolTensor that panics on error.
func MustBoolTensor(shape []int, data []bool) *BoolTensor {
	m, err := NewBoolTensor(shape, data)
	if err != nil {
		panic(err)
	}
	return m
}

// Shape returns a copy of the mask's dimensions.
func (m *BoolTensor) Shape() []int { return slices.Clone(m.shape) }

// Size returns the total number of elements.
func (m *BoolTensor) Size() int { return len(m.data) }

// Data returns a copy of the flat row-major element slice.
func (m *BoolTensor) Data() []bool { return slices.Clone(m.data) }

// CountTrue returns the number of true elements.
func (m *BoolTensor) CountTrue() int {
	n := 0
	for _, b := range m.data {
		if b {
			n++
		}
	}
	return n
}

// EqualBool reports exact equality of shape and elements.
func (m *BoolTensor) EqualBool(o *BoolTensor) bool {
	return o != nil && slices.Equal(m.shape, o.shape) && slices.Equal(m.data, o.data)
}

// Clone returns a deep copy of the mask.
func (m *BoolTensor) Clone() *BoolTensor {
	return &BoolTensor{shape: slices.Clone(m.shape), data: slices.Clone(m.data)}
}
