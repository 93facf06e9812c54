package tanks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

// roundTrip pours the slots through the tank and pumps the tubes back,
// asserting the reconstructed slots equal the originals field for field.
func roundTrip(t *testing.T, tank ports.Tank, slots map[string]domain.Value) {
	t.Helper()

	tubes, err := tank.Pour(slots)
	require.NoError(t, err, "pour")
	require.Len(t, tubes, len(tank.TubeKeys()))

	back, err := tank.Pump(tubes)
	require.NoError(t, err, "pump")
	require.Len(t, back, len(tank.SlotKeys()))

	for name, want := range slots {
		got, ok := back[name]
		require.True(t, ok, "slot %q missing from pump output", name)
		assert.True(t, want.Equal(got), "slot %q: want %v got %v", name, want, got)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		a       *domain.Tensor
		indices domain.Ints
		axis    domain.Int
		parts   int
	}{
		{
			name:    "vector at two points",
			a:       domain.Vector(0, 1, 2, 3, 4, 5),
			indices: domain.Ints{2, 4},
			axis:    0,
			parts:   3,
		},
		{
			name:    "empty index list",
			a:       domain.Vector(1, 2, 3),
			indices: domain.Ints{},
			axis:    0,
			parts:   1,
		},
		{
			name:    "matrix along axis 1",
			a:       domain.MustTensor([]int{2, 4}, []float64{1, 2, 3, 4, 5, 6, 7, 8}),
			indices: domain.Ints{1, 3},
			axis:    1,
			parts:   3,
		},
	}

	tank := NewSplit()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := map[string]domain.Value{
				"a": tt.a, "indices": tt.indices, "axis": tt.axis,
			}
			tubes, err := tank.Pour(slots)
			require.NoError(t, err)
			parts := tubes["target"].(domain.TensorList)
			assert.Len(t, parts, tt.parts)

			roundTrip(t, tank, slots)
		})
	}
}

func TestSplitExpectedParts(t *testing.T) {
	tubes, err := NewSplit().Pour(map[string]domain.Value{
		"a":       domain.Vector(0, 1, 2, 3, 4, 5),
		"indices": domain.Ints{2, 4},
		"axis":    domain.Int(0),
	})
	require.NoError(t, err)

	parts := tubes["target"].(domain.TensorList)
	require.Len(t, parts, 3)
	assert.True(t, domain.Vector(0, 1).EqualTensor(parts[0]))
	assert.True(t, domain.Vector(2, 3).EqualTensor(parts[1]))
	assert.True(t, domain.Vector(4, 5).EqualTensor(parts[2]))
}

func TestConcatRoundTrip(t *testing.T) {
	slots := map[string]domain.Value{
		"a_list": domain.TensorList{
			domain.MustTensor([]int{1, 2}, []float64{1, 2}),
			domain.MustTensor([]int{2, 2}, []float64{3, 4, 5, 6}),
		},
		"axis": domain.Int(0),
	}
	tank := NewConcat()

	tubes, err := tank.Pour(slots)
	require.NoError(t, err)
	joined := tubes["target"].(*domain.Tensor)
	assert.Equal(t, []int{3, 2}, joined.Shape())
	assert.Equal(t, domain.Ints{1}, tubes["indices"])

	roundTrip(t, tank, slots)
}

func TestMaxRoundTrip(t *testing.T) {
	a := domain.MustTensor([]int{4, 2}, []float64{
		0, 1,
		2, 3,
		4, 5,
		1, 0,
	})

	tests := []struct {
		name string
		axes domain.Ints
		want *domain.Tensor
	}{
		{"all axes", domain.Ints{}, domain.Scalar(5)},
		{"axis 0", domain.Ints{0}, domain.Vector(4, 5)},
		{"axis 1", domain.Ints{1}, domain.Vector(1, 3, 5, 1)},
	}

	tank := NewMax()
	assert.True(t, tank.Lossy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := map[string]domain.Value{"a": a, "axes": tt.axes}
			tubes, err := tank.Pour(slots)
			require.NoError(t, err)
			assert.True(t, tt.want.EqualTensor(tubes["target"].(*domain.Tensor)))

			roundTrip(t, tank, slots)
		})
	}
}

func TestMinRoundTrip(t *testing.T) {
	slots := map[string]domain.Value{
		"a":    domain.MustTensor([]int{2, 2}, []float64{4, -1, 0, 7}),
		"axes": domain.Ints{1},
	}
	tank := NewMin()

	tubes, err := tank.Pour(slots)
	require.NoError(t, err)
	assert.True(t, domain.Vector(-1, 0).EqualTensor(tubes["target"].(*domain.Tensor)))

	roundTrip(t, tank, slots)
}

func TestIsNaNRoundTrip(t *testing.T) {
	slots := map[string]domain.Value{
		"a": domain.Vector(1, math.NaN(), 3),
	}
	tank := NewIsNaN()

	tubes, err := tank.Pour(slots)
	require.NoError(t, err)
	mask := tubes["target"].(*domain.BoolTensor)
	assert.Equal(t, []bool{false, true, false}, mask.Data())

	roundTrip(t, tank, slots)
}

func TestReplaceRoundTrip(t *testing.T) {
	a := domain.Vector(1, math.NaN(), 3, math.NaN())
	slots := map[string]domain.Value{
		"a":            a,
		"mask":         a.IsNaNMask(),
		"replace_with": domain.Vector(0, 0),
	}
	tank := NewReplace()

	tubes, err := tank.Pour(slots)
	require.NoError(t, err)
	target := tubes["target"].(*domain.Tensor)
	assert.Equal(t, []float64{1, 0, 3, 0}, target.Data())
	assert.Equal(t, domain.Ints{2}, tubes["replace_with_shape"])
	replaced := tubes["replaced_vals"].(*domain.Tensor)
	assert.Equal(t, 2, replaced.Size())

	roundTrip(t, tank, slots)
}

func TestReplaceCountMismatch(t *testing.T) {
	a := domain.Vector(1, math.NaN())
	_, err := NewReplace().Pour(map[string]domain.Value{
		"a":            a,
		"mask":         a.IsNaNMask(),
		"replace_with": domain.Vector(0, 0, 0),
	})
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestAddRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a, b *domain.Tensor
	}{
		{
			name: "equal shapes",
			a:    domain.Vector(1, 2, 3),
			b:    domain.Vector(10, 20, 30),
		},
		{
			name: "b broadcast over a",
			a:    domain.MustTensor([]int{2, 2}, []float64{1, 2, 3, 4}),
			b:    domain.Vector(0.5, 1.5),
		},
		{
			name: "a broadcast over b",
			a:    domain.Scalar(5),
			b:    domain.MustTensor([]int{2, 2}, []float64{1, 2, 3, 4}),
		},
	}

	tank := NewAdd()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundTrip(t, tank, map[string]domain.Value{"a": tt.a, "b": tt.b})
		})
	}
}

func TestSubRoundTrip(t *testing.T) {
	tank := NewSub()
	roundTrip(t, tank, map[string]domain.Value{
		"a": domain.MustTensor([]int{2, 2}, []float64{4, 8, 16, 32}),
		"b": domain.Vector(1, 2),
	})
	// a is the carried (smaller) operand.
	roundTrip(t, tank, map[string]domain.Value{
		"a": domain.Scalar(10),
		"b": domain.Vector(1, 2, 4),
	})
}

func TestMulRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a, b *domain.Tensor
	}{
		{
			name: "no zeros",
			a:    domain.MustTensor([]int{2, 2}, []float64{1, 2, 3, 4}),
			b:    domain.Vector(2, 4),
		},
		{
			name: "zero multiplier erases elements",
			a:    domain.MustTensor([]int{2, 2}, []float64{1, 2, 3, 4}),
			b:    domain.Vector(0, 2),
		},
		{
			name: "zero in larger operand",
			a:    domain.Vector(0, 2, 4),
			b:    domain.Scalar(3),
		},
	}

	tank := NewMul()
	assert.True(t, tank.Lossy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundTrip(t, tank, map[string]domain.Value{"a": tt.a, "b": tt.b})
		})
	}
}

func TestMulMissingVals(t *testing.T) {
	tubes, err := NewMul().Pour(map[string]domain.Value{
		"a": domain.MustTensor([]int{2, 2}, []float64{1, 2, 3, 4}),
		"b": domain.Vector(0, 2),
	})
	require.NoError(t, err)

	// Elements of a in the zero-multiplier column are carried.
	missing := tubes["missing_vals"].(*domain.Tensor)
	assert.Equal(t, []float64{1, 3}, missing.Data())
}

func TestDivRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a, b *domain.Tensor
	}{
		{
			name: "no zeros",
			a:    domain.MustTensor([]int{2, 2}, []float64{2, 4, 8, 16}),
			b:    domain.Vector(2, 4),
		},
		{
			name: "zero numerator with a carried",
			a:    domain.Scalar(0),
			b:    domain.Vector(1, 2, 4),
		},
		{
			name: "zero divisor erases a",
			a:    domain.Vector(2, 4, 8),
			b:    domain.Scalar(0),
		},
	}

	tank := NewDiv()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roundTrip(t, tank, map[string]domain.Value{"a": tt.a, "b": tt.b})
		})
	}
}

func TestMulDivShapeGuard(t *testing.T) {
	// The larger operand does not span the broadcast result, so the lost
	// elements could not be indexed back.
	_, err := NewMul().Pour(map[string]domain.Value{
		"a": domain.MustTensor([]int{2, 1}, []float64{1, 2}),
		"b": domain.MustTensor([]int{1, 3}, []float64{0, 1, 2}),
	})
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestTransposeRoundTrip(t *testing.T) {
	roundTrip(t, NewTranspose(), map[string]domain.Value{
		"a":    domain.MustTensor([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6}),
		"axes": domain.Ints{1, 0},
	})
	roundTrip(t, NewTranspose(), map[string]domain.Value{
		"a":    domain.MustTensor([]int{2, 2, 2}, []float64{1, 2, 3, 4, 5, 6, 7, 8}),
		"axes": domain.Ints{2, 0, 1},
	})
}

func TestReshapeRoundTrip(t *testing.T) {
	roundTrip(t, NewReshape(), map[string]domain.Value{
		"a":     domain.Vector(1, 2, 3, 4, 5, 6),
		"shape": domain.Ints{3, 2},
	})
}

func TestTankKindErrors(t *testing.T) {
	tests := []struct {
		name  string
		tank  ports.Tank
		slots map[string]domain.Value
	}{
		{
			name: "split wants tensor",
			tank: NewSplit(),
			slots: map[string]domain.Value{
				"a": domain.Int(1), "indices": domain.Ints{}, "axis": domain.Int(0),
			},
		},
		{
			name: "concat wants list",
			tank: NewConcat(),
			slots: map[string]domain.Value{
				"a_list": domain.Vector(1), "axis": domain.Int(0),
			},
		},
		{
			name: "replace wants mask",
			tank: NewReplace(),
			slots: map[string]domain.Value{
				"a":            domain.Vector(1),
				"mask":         domain.Vector(0),
				"replace_with": domain.Vector(),
			},
		},
		{
			name: "add wants tensors",
			tank: NewAdd(),
			slots: map[string]domain.Value{
				"a": domain.Vector(1), "b": domain.Bool(true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tank.Pour(tt.slots)
			assert.ErrorIs(t, err, domain.ErrTypeMismatch)
		})
	}
}

func TestTankDeclarations(t *testing.T) {
	tanks := []ports.Tank{
		NewSplit(), NewConcat(), NewMax(), NewMin(), NewIsNaN(),
		NewReplace(), NewAdd(), NewSub(), NewMul(), NewDiv(),
		NewTranspose(), NewReshape(),
	}
	seen := make(map[string]bool)
	for _, tank := range tanks {
		assert.NotEmpty(t, tank.TypeName())
		assert.False(t, seen[tank.TypeName()], "duplicate type name %s", tank.TypeName())
		seen[tank.TypeName()] = true
		assert.NotEmpty(t, tank.SlotKeys())
		assert.NotEmpty(t, tank.TubeKeys())
	}
}
