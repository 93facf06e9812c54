package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
	"github.com/cascata/waterworks/tanks"
)

// Verify interface compliance at compile time.
var _ ports.TankRegistry = (*DefaultTankRegistry)(nil)

// DefaultTankRegistry implements the TankRegistry interface: a factory
// directory mapping tank type names to constructors, with the built-in
// tank types pre-registered. Declarative layers (the transform loader)
// instantiate operations through it instead of depending on the tanks
// package directly.
type DefaultTankRegistry struct {
	mu        sync.RWMutex
	factories map[string]ports.TankFactory
}

// NewDefaultTankRegistry creates a registry with every built-in tank type
// pre-registered.
func NewDefaultTankRegistry() *DefaultTankRegistry {
	r := &DefaultTankRegistry{factories: make(map[string]ports.TankFactory)}
	r.registerBuiltinFactories()
	return r
}

// registerBuiltinFactories registers the standard tank types shipped with
// the engine.
func (r *DefaultTankRegistry) registerBuiltinFactories() {
	builtins := []ports.TankFactory{
		func() ports.Tank { return tanks.NewSplit() },
		func() ports.Tank { return tanks.NewConcat() },
		func() ports.Tank { return tanks.NewMax() },
		func() ports.Tank { return tanks.NewMin() },
		func() ports.Tank { return tanks.NewIsNaN() },
		func() ports.Tank { return tanks.NewReplace() },
		func() ports.Tank { return tanks.NewAdd() },
		func() ports.Tank { return tanks.NewSub() },
		func() ports.Tank { return tanks.NewMul() },
		func() ports.Tank { return tanks.NewDiv() },
		func() ports.Tank { return tanks.NewTranspose() },
		func() ports.Tank { return tanks.NewReshape() },
	}
	for _, factory := range builtins {
		r.factories[factory().TypeName()] = factory
	}
}

// Register adds a factory under the given type name. Registering an
// already taken name fails with ErrNameCollision.
func (r *DefaultTankRegistry) Register(typeName string, factory ports.TankFactory) error {
	if typeName == "" || factory == nil {
		return fmt.Errorf("tank factory registration requires a type name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[typeName]; ok {
		return fmt.Errorf("tank type %q already registered: %w", typeName, domain.ErrNameCollision)
	}
	r.factories[typeName] = factory
	return nil
}

// Create instantiates the tank type registered under typeName.
func (r *DefaultTankRegistry) Create(typeName string) (ports.Tank, error) {
	r.mu.RLock()
	factory, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tank type %q", typeName)
	}
	return factory(), nil
}

// Types returns the sorted registered type names.
func (r *DefaultTankRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
