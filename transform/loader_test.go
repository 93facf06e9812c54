package transform

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascata/waterworks/domain"
)

func fittedTransform(t *testing.T) *NumTransform {
	t.Helper()
	tr, err := NewNumTransform(NumConfig{Name: "heights", NormMode: NormMeanStd, FillValue: 0})
	require.NoError(t, err)
	require.NoError(t, tr.CalcGlobalValues(domain.Vector(1, 3, math.NaN())))
	return tr
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tr := fittedTransform(t)

	data, err := SaveNum(tr)
	require.NoError(t, err)

	restored, err := NewLoader(nil).LoadNum(data)
	require.NoError(t, err)
	assert.Equal(t, tr.Config(), restored.Config())
	assert.True(t, tr.mean.EqualTensor(restored.mean))
	assert.True(t, tr.std.EqualTensor(restored.std))

	// The restored transform behaves identically.
	input := domain.Vector(2, math.NaN(), 3)
	want, err := tr.Pour(input)
	require.NoError(t, err)
	got, err := restored.Pour(input)
	require.NoError(t, err)
	assert.True(t, want.Nums.EqualTensor(got.Nums))
	assert.True(t, want.Nans.EqualBool(got.Nans))

	back, err := restored.Pump(got)
	require.NoError(t, err)
	assert.True(t, input.EqualTensor(back))
}

func TestSaveRequiresStatistics(t *testing.T) {
	tr, err := NewNumTransform(NumConfig{Name: "n", NormMode: NormMinMax})
	require.NoError(t, err)
	_, err = SaveNum(tr)
	assert.ErrorIs(t, err, ErrNoGlobalValues)
}

func TestLoadNumCaching(t *testing.T) {
	data, err := SaveNum(fittedTransform(t))
	require.NoError(t, err)

	loader := NewLoader(nil)
	first, err := loader.LoadNum(data)
	require.NoError(t, err)
	second, err := loader.LoadNum(data)
	require.NoError(t, err)
	assert.Same(t, first, second, "identical documents resolve to the cached transform")

	// A different document misses the cache.
	other, err := NewNumTransform(NumConfig{Name: "other"})
	require.NoError(t, err)
	require.NoError(t, other.CalcGlobalValues(domain.Vector(1)))
	otherData, err := SaveNum(other)
	require.NoError(t, err)
	third, err := loader.LoadNum(otherData)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestLoadNumErrors(t *testing.T) {
	loader := NewLoader(nil)

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "malformed yaml",
			doc:  "config: [",
		},
		{
			name: "invalid config",
			doc:  "config:\n  name: a/b\n",
		},
		{
			name: "mode without statistics",
			doc:  "config:\n  name: n\n  norm_mode: mean_std\n",
		},
		{
			name: "statistics shape mismatch",
			doc:  "config:\n  name: n\n  norm_mode: mean_std\nmean:\n  shape: [2]\n  data: [1]\nstd:\n  shape: []\n  data: [1]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.LoadNum([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadNumFromFile(t *testing.T) {
	tr := fittedTransform(t)
	path := filepath.Join(t.TempDir(), "heights.yaml")
	require.NoError(t, SaveNumToFile(tr, path))

	restored, err := NewLoader(nil).LoadNumFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "heights", restored.Name())

	_, err = NewLoader(nil).LoadNumFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "norm_mode: mean_std")
}
