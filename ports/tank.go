// Package ports defines the interfaces that form the contract between the
// domain model, the graph engine, and the infrastructure layers (built-in
// tanks and observability middleware). These interfaces enable dependency
// inversion and make the engine testable with stub operations.
package ports

import "github.com/cascata/waterworks/domain"

// Tank is an atomic invertible operation: a fixed, declared set of input
// ports (slots) and output ports (tubes), a forward function (Pour) and a
// backward function (Pump) satisfying Pump(Pour(x)) == x for every input
// the tank accepts, field for field.
//
// Tanks must be pure and stateless: Pour and Pump are functions of their
// arguments only and are safe for concurrent use. When the forward
// computation discards information (Lossy returns true), Pour emits enough
// of the original input as additional tubes for Pump to reconstruct the
// slots exactly; the tank never drops that carried state itself. Slot
// values needed unchanged for inversion (axes, split indices) are passed
// through as dedicated tubes, never recomputed or defaulted during Pump.
type Tank interface {
	// TypeName returns the registry name of the tank type, shared by all
	// instances and used for deterministic auto-naming.
	TypeName() string

	// SlotKeys returns the ordered, fixed names of the tank's inputs.
	SlotKeys() []string

	// TubeKeys returns the ordered, fixed names of the tank's outputs.
	TubeKeys() []string

	// Lossy reports whether the forward computation is not mathematically
	// invertible on its own, so that one or more tubes exist purely as
	// carried state for reconstruction.
	Lossy() bool

	// Pour executes the operation forward: one value per declared slot in,
	// one value per declared tube out. It fails with a kind or shape error
	// when a supplied value is incompatible; it never partially succeeds.
	Pour(slots map[string]domain.Value) (map[string]domain.Value, error)

	// Pump executes the operation backward: one value per declared tube
	// in, one value per declared slot out, reconstructing Pour's inputs
	// exactly.
	Pump(tubes map[string]domain.Value) (map[string]domain.Value, error)
}

// TankFactory creates a fresh instance of a tank type.
type TankFactory func() Tank

// TankRegistry is a factory directory for tank types keyed by type name,
// letting declarative configuration instantiate operations without
// depending on their packages.
type TankRegistry interface {
	// Register adds a factory under the given type name.
	// It fails if the name is already taken.
	Register(typeName string, factory TankFactory) error

	// Create instantiates the tank type registered under typeName.
	Create(typeName string) (Tank, error)

	// Types returns the sorted registered type names.
	Types() []string
}
