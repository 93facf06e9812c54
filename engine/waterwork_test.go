package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/tanks"
)

func TestAddAutoNaming(t *testing.T) {
	w := New("g")
	x, err := w.Placeholder("x", domain.KindTensor)
	require.NoError(t, err)

	first, err := w.Add(tanks.NewAdd(), Wiring{"a": x, "b": Literal(domain.Scalar(1))})
	require.NoError(t, err)
	assert.Equal(t, "add_0", first.Name())

	second, err := w.Add(tanks.NewAdd(), Wiring{"a": first.Tube("target"), "b": Literal(domain.Scalar(1))})
	require.NoError(t, err)
	assert.Equal(t, "add_1", second.Name())

	named, err := w.Add(tanks.NewSub(), Wiring{"a": second.Tube("target"), "b": Literal(domain.Scalar(1))},
		WithName("shift"))
	require.NoError(t, err)
	assert.Equal(t, "shift", named.Name())
}

func TestNamespaceDeterminism(t *testing.T) {
	build := func() []domain.PortKey {
		w := New("g")
		x, err := w.Placeholder("x", domain.KindTensor)
		require.NoError(t, err)
		var last *TankRef
		require.NoError(t, w.InScope("prep", func() error {
			ref, err := w.Add(tanks.NewIsNaN(), Wiring{"a": x})
			if err != nil {
				return err
			}
			last, err = w.Add(tanks.NewAdd(), Wiring{
				"a": ref.Tube("a"), "b": Literal(domain.Scalar(1)),
			})
			return err
		}))
		_, err = w.Add(tanks.NewSub(), Wiring{"a": last.Tube("target"), "b": Literal(domain.Scalar(2))})
		require.NoError(t, err)
		require.NoError(t, w.Freeze())
		return w.Taps()
	}

	// Re-running identical construction code yields identical boundary keys.
	assert.Equal(t, build(), build())
}

func TestScopedNames(t *testing.T) {
	w := New("g")
	var inner *TankRef
	err := w.InScope("outer", func() error {
		return w.InScope("inner", func() error {
			x, err := w.Placeholder("x", domain.KindTensor)
			if err != nil {
				return err
			}
			assert.Equal(t, "outer/inner/x", x.Name())
			inner, err = w.Add(tanks.NewIsNaN(), Wiring{"a": x})
			return err
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "outer/inner/isnan_0", inner.Name())

	// Scope names must not carry path separators.
	assert.ErrorIs(t, w.EnterScope("a/b"), domain.ErrInvalidPath)
	assert.ErrorIs(t, w.EnterScope(""), domain.ErrInvalidPath)
	assert.ErrorIs(t, w.ExitScope(), domain.ErrInvalidPath)
}

func TestNameCollisions(t *testing.T) {
	w := New("g")
	x, err := w.Placeholder("x", domain.KindTensor)
	require.NoError(t, err)

	_, err = w.Placeholder("x", domain.KindTensor)
	assert.ErrorIs(t, err, domain.ErrNameCollision)

	_, err = w.Add(tanks.NewIsNaN(), Wiring{"a": x}, WithName("x"))
	assert.ErrorIs(t, err, domain.ErrNameCollision)

	ref, err := w.Add(tanks.NewIsNaN(), Wiring{"a": x}, WithName("scan"))
	require.NoError(t, err)
	_, err = w.Add(tanks.NewIsNaN(), Wiring{"a": x}, WithName("scan"))
	assert.ErrorIs(t, err, domain.ErrNameCollision)

	// Tap aliases share the same name universe.
	assert.ErrorIs(t, w.NameTap(ref.Tube("target"), "scan"), domain.ErrNameCollision)
	require.NoError(t, w.NameTap(ref.Tube("target"), "mask"))
	assert.ErrorIs(t, w.NameTap(ref.Tube("target"), "mask2"), domain.ErrNameCollision,
		"one tube takes at most one alias")
	_, err = w.Placeholder("mask", domain.KindTensor)
	assert.ErrorIs(t, err, domain.ErrNameCollision)
}

func TestAddWiringValidation(t *testing.T) {
	w := New("g")
	x, err := w.Placeholder("x", domain.KindTensor)
	require.NoError(t, err)
	other := New("other")
	foreign, err := other.Placeholder("y", domain.KindTensor)
	require.NoError(t, err)

	tests := []struct {
		name   string
		wiring Wiring
	}{
		{
			name:   "missing slot",
			wiring: Wiring{"a": x},
		},
		{
			name:   "undeclared slot",
			wiring: Wiring{"a": x, "b": x, "c": x},
		},
		{
			name:   "nil source",
			wiring: Wiring{"a": x, "b": nil},
		},
		{
			name:   "nil literal",
			wiring: Wiring{"a": x, "b": Literal(nil)},
		},
		{
			name:   "foreign placeholder",
			wiring: Wiring{"a": x, "b": foreign},
		},
		{
			name:   "unknown tank tube",
			wiring: Wiring{"a": x, "b": TubeRef{tank: "ghost", tube: "target"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Add(tanks.NewAdd(), tt.wiring)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMissingWiring)

			var portErr *domain.PortError
			assert.ErrorAs(t, err, &portErr)
		})
	}

	// Failed adds must not leave partial state behind.
	ref, err := w.Add(tanks.NewAdd(), Wiring{"a": x, "b": Literal(domain.Scalar(1))})
	require.NoError(t, err)
	assert.Equal(t, "add_0", ref.Name(), "failed adds should not consume names")

	_, err = w.Add(tanks.NewAdd(), Wiring{"a": ref.Tube("nope"), "b": Literal(domain.Scalar(1))})
	assert.ErrorIs(t, err, domain.ErrMissingWiring, "tube name is validated against the owner's declaration")
}

func TestRewire(t *testing.T) {
	w := New("g")
	x, err := w.Placeholder("x", domain.KindTensor)
	require.NoError(t, err)
	first, err := w.Add(tanks.NewAdd(), Wiring{"a": x, "b": Literal(domain.Scalar(1))})
	require.NoError(t, err)
	second, err := w.Add(tanks.NewAdd(), Wiring{"a": first.Tube("target"), "b": Literal(domain.Scalar(2))})
	require.NoError(t, err)

	t.Run("retarget to literal", func(t *testing.T) {
		require.NoError(t, w.Rewire(second.Name(), "b", Literal(domain.Scalar(3))))
	})

	t.Run("direct cycle", func(t *testing.T) {
		err := w.Rewire(first.Name(), "b", first.Tube("target"))
		assert.ErrorIs(t, err, domain.ErrCycleDetected)
	})

	t.Run("transitive cycle leaves graph intact", func(t *testing.T) {
		err := w.Rewire(first.Name(), "b", second.Tube("target"))
		assert.ErrorIs(t, err, domain.ErrCycleDetected)

		// The failed rewire must not have touched the wiring.
		require.NoError(t, w.Freeze())
		out, err := w.Pour(NewValueDict().Set(x.Key(), domain.Vector(1)))
		require.NoError(t, err)
		got, ok := out.Get(domain.TubeKey(second.Name(), "target"))
		require.True(t, ok)
		assert.True(t, domain.Vector(5).EqualTensor(got.(*domain.Tensor)))
	})

	t.Run("unknown tank", func(t *testing.T) {
		err := w.Rewire("ghost", "a", Literal(domain.Scalar(0)))
		assert.ErrorIs(t, err, domain.ErrFrozen, "graph froze above")
	})
}

func TestRewireUnknownTargets(t *testing.T) {
	w := New("g")
	x, err := w.Placeholder("x", domain.KindTensor)
	require.NoError(t, err)
	ref, err := w.Add(tanks.NewIsNaN(), Wiring{"a": x})
	require.NoError(t, err)

	assert.ErrorIs(t, w.Rewire("ghost", "a", x), domain.ErrMissingWiring)
	assert.ErrorIs(t, w.Rewire(ref.Name(), "nope", x), domain.ErrMissingWiring)
}

func TestFreeze(t *testing.T) {
	t.Run("unconsumed placeholder", func(t *testing.T) {
		w := New("g")
		_, err := w.Placeholder("orphan", domain.KindTensor)
		require.NoError(t, err)
		err = w.Freeze()
		assert.ErrorIs(t, err, domain.ErrMissingWiring,
			"a placeholder feeding no slot could never be reconstructed")
	})

	t.Run("frozen graph rejects construction", func(t *testing.T) {
		w := New("g")
		x, err := w.Placeholder("x", domain.KindTensor)
		require.NoError(t, err)
		ref, err := w.Add(tanks.NewIsNaN(), Wiring{"a": x})
		require.NoError(t, err)
		require.NoError(t, w.Freeze())
		assert.True(t, w.Frozen())

		_, err = w.Placeholder("y", domain.KindTensor)
		assert.ErrorIs(t, err, domain.ErrFrozen)
		_, err = w.Add(tanks.NewIsNaN(), Wiring{"a": x})
		assert.ErrorIs(t, err, domain.ErrFrozen)
		assert.ErrorIs(t, w.NameTap(ref.Tube("target"), "mask"), domain.ErrFrozen)
		assert.ErrorIs(t, w.EnterScope("s"), domain.ErrFrozen)
		assert.ErrorIs(t, w.Freeze(), domain.ErrFrozen)
	})

	t.Run("empty graph freezes", func(t *testing.T) {
		w := New("empty")
		require.NoError(t, w.Freeze())
		assert.Empty(t, w.Taps())
		assert.Empty(t, w.Funnels())
	})
}

func TestTapsAndFunnels(t *testing.T) {
	w := New("g")
	x, err := w.Placeholder("x", domain.KindTensor)
	require.NoError(t, err)
	y, err := w.Placeholder("y", domain.KindTensor)
	require.NoError(t, err)
	ref, err := w.Add(tanks.NewAdd(), Wiring{"a": x, "b": y})
	require.NoError(t, err)
	require.NoError(t, w.NameTap(ref.Tube("target"), "sum"))
	require.NoError(t, w.Freeze())

	assert.Equal(t, []domain.PortKey{domain.NamedKey("x"), domain.NamedKey("y")}, w.Funnels())

	// Every dangling tube is a tap; the aliased one appears under its alias.
	taps := w.Taps()
	assert.Equal(t, []domain.PortKey{
		domain.NamedKey("sum"),
		domain.TubeKey("add_0", "smaller_size_array"),
		domain.TubeKey("add_0", "a_is_smaller"),
	}, taps)
}

func TestPlaceholderDefaults(t *testing.T) {
	w := New("g")
	_, err := w.Placeholder("x", domain.KindTensor, WithDefault(domain.Int(1)))
	assert.ErrorIs(t, err, domain.ErrTypeMismatch, "default must match the declared kind")

	x, err := w.Placeholder("y", domain.KindTensor, WithDefault(domain.Vector(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, domain.KindTensor, x.PortKind())
}
