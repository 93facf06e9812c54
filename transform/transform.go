// Package transform provides the pipeline-builder layer on top of the
// waterwork engine: reusable mappings from raw numeric data to
// normalized, vectorized representations and back. A transform computes
// dataset-wide statistics once, bakes them into a waterwork as literal
// slot values, and then exposes typed pour/pump operations that delegate
// to the graph.
package transform

import (
	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/engine"
)

// Transform is a reusable, invertible mapping definition. Implementations
// compute their global statistics ahead of graph construction and reuse
// one frozen waterwork across executions.
type Transform interface {
	// Name returns the transform's name, which prefixes its boundary
	// dictionary keys when nested into an enclosing graph.
	Name() string

	// CalcGlobalValues computes the dataset-wide statistics the mapping
	// depends on (normalization parameters and the like). It must run
	// before the waterwork is built; null values in the dataset are
	// ignored.
	CalcGlobalValues(data *domain.Tensor) error

	// Waterwork returns the transform's frozen graph, building it on
	// first use.
	Waterwork() (*engine.Waterwork, error)
}
