package transform

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/engine"
	"github.com/cascata/waterworks/ports"
)

var _ Transform = (*NumTransform)(nil)

// NormMode selects the normalization applied to the data.
type NormMode string

// Supported normalization modes.
const (
	// NormNone applies no normalization; the transform only fills NaNs.
	NormNone NormMode = ""
	// NormMeanStd normalizes to zero mean and unit standard deviation.
	NormMeanStd NormMode = "mean_std"
	// NormMinMax rescales into the [0, 1] range.
	NormMinMax NormMode = "min_max"
)

// ErrNoGlobalValues is returned when a transform is executed before its
// statistics have been computed or restored.
var ErrNoGlobalValues = errors.New("global values not computed, run CalcGlobalValues first")

// Package-level validator instance for configuration validation.
var validate = validator.New()

// NumConfig defines the configuration parameters for a NumTransform.
// All fields are validated during transform creation and config loading.
type NumConfig struct {
	// Name identifies the transform and prefixes its boundary keys when
	// nested. It must not contain a path separator.
	Name string `yaml:"name" json:"name" validate:"required,excludes=/"`

	// NormMode selects the normalization: "" (none), mean_std, min_max.
	NormMode NormMode `yaml:"norm_mode" json:"norm_mode" validate:"omitempty,oneof=mean_std min_max"`

	// NormAxes are the dataset axes the statistics are computed over.
	// Empty means over all axes, yielding scalar statistics.
	NormAxes []int `yaml:"norm_axes" json:"norm_axes" validate:"omitempty,unique"`

	// FillValue replaces NaN elements ahead of the arithmetic stages.
	FillValue float64 `yaml:"fill_value" json:"fill_value"`
}

// NumTransform maps raw numeric arrays to normalized arrays and back:
// NaNs are masked and filled, then the data is shifted and scaled by
// statistics computed once from a reference dataset. Pour yields the
// normalized values plus the NaN mask; Pump reconstructs the raw array
// exactly, NaN positions included.
type NumTransform struct {
	config NumConfig

	// Statistics computed by CalcGlobalValues and baked into the graph
	// as literals. Which pair is set depends on the norm mode.
	mean *domain.Tensor
	std  *domain.Tensor
	min  *domain.Tensor
	max  *domain.Tensor

	registry ports.TankRegistry

	buildOnce sync.Once
	ww        *engine.Waterwork
	buildErr  error
}

// NumOption configures a NumTransform.
type NumOption func(*NumTransform)

// WithRegistry overrides the tank registry the transform instantiates its
// operations from.
func WithRegistry(reg ports.TankRegistry) NumOption {
	return func(t *NumTransform) { t.registry = reg }
}

// NewNumTransform creates a numeric transform with the given
// configuration. Returns an error if configuration validation fails.
func NewNumTransform(config NumConfig, opts ...NumOption) (*NumTransform, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	t := &NumTransform{config: config, registry: engine.NewDefaultTankRegistry()}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name implements the Transform interface.
func (t *NumTransform) Name() string { return t.config.Name }

// Config returns a copy of the transform's configuration.
func (t *NumTransform) Config() NumConfig { return t.config }

// CalcGlobalValues implements the Transform interface: it computes the
// NaN-ignoring statistics of the reference dataset over the configured
// axes. A zero standard deviation is replaced by 1 and equal min/max are
// widened by 1, so the downstream division stays invertible.
func (t *NumTransform) CalcGlobalValues(data *domain.Tensor) error {
	outShape, groups, err := nanGroups(data, t.config.NormAxes)
	if err != nil {
		return err
	}

	switch t.config.NormMode {
	case NormMeanStd:
		means := make([]float64, len(groups))
		stds := make([]float64, len(groups))
		for i, vals := range groups {
			if len(vals) == 0 {
				return fmt.Errorf("axis group %d holds only NaNs: %w", i, domain.ErrShapeMismatch)
			}
			means[i] = stat.Mean(vals, nil)
			// Population variance, matching the statistics the data
			// is later divided by.
			stds[i] = math.Sqrt(stat.MomentAbout(2, vals, means[i], nil))
			if stds[i] == 0 {
				stds[i] = 1
			}
		}
		t.mean = domain.MustTensor(outShape, means)
		t.std = domain.MustTensor(outShape, stds)
	case NormMinMax:
		mins := make([]float64, len(groups))
		maxs := make([]float64, len(groups))
		for i, vals := range groups {
			if len(vals) == 0 {
				return fmt.Errorf("axis group %d holds only NaNs: %w", i, domain.ErrShapeMismatch)
			}
			mins[i] = floats.Min(vals)
			maxs[i] = floats.Max(vals)
			if mins[i] == maxs[i] {
				maxs[i] = mins[i] + 1
			}
		}
		t.min = domain.MustTensor(outShape, mins)
		t.max = domain.MustTensor(outShape, maxs)
	case NormNone:
		// Only the NaN mask and fill are needed.
	}
	return nil
}

// ready reports whether the statistics the configured norm mode needs are
// available.
func (t *NumTransform) ready() bool {
	switch t.config.NormMode {
	case NormMeanStd:
		return t.mean != nil && t.std != nil
	case NormMinMax:
		return t.min != nil && t.max != nil
	default:
		return true
	}
}

// Waterwork implements the Transform interface, building and freezing the
// graph on first use: isnan -> replace -> sub -> div, with the statistics
// wired in as literals and the nums/nans/replaced_vals tubes exported
// under stable tap aliases.
func (t *NumTransform) Waterwork() (*engine.Waterwork, error) {
	if !t.ready() {
		return nil, ErrNoGlobalValues
	}
	t.buildOnce.Do(func() {
		t.ww, t.buildErr = t.define()
	})
	return t.ww, t.buildErr
}

func (t *NumTransform) define() (*engine.Waterwork, error) {
	ww := engine.New(t.config.Name)

	input, err := ww.Placeholder("input", domain.KindTensor)
	if err != nil {
		return nil, err
	}
	replaceWith, err := ww.Placeholder("replace_with", domain.KindTensor)
	if err != nil {
		return nil, err
	}

	isnan, err := t.addTank(ww, "isnan", engine.Wiring{"a": input}, "")
	if err != nil {
		return nil, err
	}
	rp, err := t.addTank(ww, "replace", engine.Wiring{
		"a":            isnan.Tube("a"),
		"mask":         isnan.Tube("target"),
		"replace_with": replaceWith,
	}, "rp")
	if err != nil {
		return nil, err
	}
	if err := ww.NameTap(rp.Tube("mask"), "nans"); err != nil {
		return nil, err
	}
	if err := ww.NameTap(rp.Tube("replaced_vals"), "replaced_vals"); err != nil {
		return nil, err
	}

	cur := rp.Tube("target")
	subVal, divVal := t.normLiterals()
	if subVal != nil {
		sub, err := t.addTank(ww, "sub", engine.Wiring{"a": cur, "b": engine.Literal(subVal)}, "")
		if err != nil {
			return nil, err
		}
		div, err := t.addTank(ww, "div", engine.Wiring{"a": sub.Tube("target"), "b": engine.Literal(divVal)}, "")
		if err != nil {
			return nil, err
		}
		cur = div.Tube("target")
	}
	if err := ww.NameTap(cur, "nums"); err != nil {
		return nil, err
	}

	if err := ww.Freeze(); err != nil {
		return nil, err
	}
	return ww, nil
}

// normLiterals returns the subtrahend and divisor for the configured norm
// mode, or nils when no normalization applies.
func (t *NumTransform) normLiterals() (subVal, divVal *domain.Tensor) {
	switch t.config.NormMode {
	case NormMeanStd:
		return t.mean, t.std
	case NormMinMax:
		span, err := domain.Sub(t.max, t.min)
		if err != nil {
			// Shapes come from one nanGroups call; they cannot disagree.
			panic(err)
		}
		return t.min, span
	default:
		return nil, nil
	}
}

func (t *NumTransform) addTank(ww *engine.Waterwork, typeName string, wiring engine.Wiring, name string) (*engine.TankRef, error) {
	tank, err := t.registry.Create(typeName)
	if err != nil {
		return nil, err
	}
	if name != "" {
		return ww.Add(tank, wiring, engine.WithName(name))
	}
	return ww.Add(tank, wiring)
}

// PourResult is the external representation produced by Pour: the
// normalized values and the positions of the original NaNs. Together with
// the transform's configuration these are sufficient to reconstruct the
// raw array exactly.
type PourResult struct {
	Nums *domain.Tensor
	Nans *domain.BoolTensor
}

// Pour runs the transform forward over a raw array.
func (t *NumTransform) Pour(data *domain.Tensor) (*PourResult, error) {
	ww, err := t.Waterwork()
	if err != nil {
		return nil, err
	}

	nanCount := data.IsNaNMask().CountTrue()
	funnel := engine.NewValueDict().
		Set(domain.NamedKey("input"), data).
		Set(domain.NamedKey("replace_with"), domain.Full([]int{nanCount}, t.config.FillValue))

	taps, err := ww.Pour(funnel)
	if err != nil {
		return nil, err
	}
	nums, _ := taps.Get(domain.NamedKey("nums"))
	nans, _ := taps.Get(domain.NamedKey("nans"))
	return &PourResult{Nums: nums.(*domain.Tensor), Nans: nans.(*domain.BoolTensor)}, nil
}

// Pump reconstructs the raw array from a pour result: the NaN mask
// restores the missing positions, and the carried-state tubes of the
// arithmetic stages are rebuilt from the transform's own statistics, so
// the normalized values and mask alone suffice externally.
func (t *NumTransform) Pump(res *PourResult) (*domain.Tensor, error) {
	ww, err := t.Waterwork()
	if err != nil {
		return nil, err
	}

	nanCount := res.Nans.CountTrue()
	taps := engine.NewValueDict().
		Set(domain.NamedKey("nums"), res.Nums).
		Set(domain.NamedKey("nans"), res.Nans).
		Set(domain.NamedKey("replaced_vals"), domain.Full([]int{nanCount}, math.NaN()))
	if err := taps.SetPath("rp/tubes/replace_with_shape", domain.Ints{nanCount}); err != nil {
		return nil, err
	}

	if subVal, divVal := t.normLiterals(); subVal != nil {
		entries := map[string]domain.Value{
			"sub_0/tubes/smaller_size_array": subVal,
			"sub_0/tubes/a_is_smaller":       domain.Bool(false),
			"div_0/tubes/smaller_size_array": divVal,
			"div_0/tubes/a_is_smaller":       domain.Bool(false),
			"div_0/tubes/missing_vals":       domain.Vector(),
		}
		for path, v := range entries {
			if err := taps.SetPath(path, v); err != nil {
				return nil, err
			}
		}
	}

	funnels, err := ww.Pump(taps)
	if err != nil {
		return nil, err
	}
	raw, _ := funnels.Get(domain.NamedKey("input"))
	return raw.(*domain.Tensor), nil
}

// nanGroups partitions the tensor's elements into one sample group per
// position of the reduced shape (the dims not in axes), dropping NaNs.
// An empty axis set groups every element together.
func nanGroups(t *domain.Tensor, axes []int) ([]int, [][]float64, error) {
	shape := t.Shape()
	reduce := make([]bool, len(shape))
	if len(axes) == 0 {
		for i := range reduce {
			reduce[i] = true
		}
	}
	for _, ax := range axes {
		if ax < 0 || ax >= len(shape) {
			return nil, nil, fmt.Errorf("norm axis %d out of range for rank %d: %w", ax, len(shape), domain.ErrShapeMismatch)
		}
		reduce[ax] = true
	}

	outShape := make([]int, 0, len(shape))
	for i, d := range shape {
		if !reduce[i] {
			outShape = append(outShape, d)
		}
	}
	outSize := 1
	for _, d := range outShape {
		outSize *= d
	}

	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	outStrides := make([]int, len(outShape))
	acc = 1
	for i := len(outShape) - 1; i >= 0; i-- {
		outStrides[i] = acc
		acc *= outShape[i]
	}

	groups := make([][]float64, outSize)
	data := t.Data()
	for flat, v := range data {
		if math.IsNaN(v) {
			continue
		}
		rem := flat
		oflat := 0
		oi := 0
		for i := range shape {
			ix := rem / strides[i]
			rem %= strides[i]
			if !reduce[i] {
				oflat += ix * outStrides[oi]
				oi++
			}
		}
		groups[oflat] = append(groups[oflat], v)
	}
	return outShape, groups, nil
}
