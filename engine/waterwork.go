package engine

import (
	"fmt"
	"sync"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/ports"
)

// SlotSource is the wiring target of a tank slot: a literal value, a
// placeholder, or another tank's tube. The three implementations are
// Literal, *Placeholder, and TubeRef.
type SlotSource interface{ isSlotSource() }

type literalSource struct{ value domain.Value }

func (literalSource) isSlotSource() {}

// Literal wires a slot to a constant value baked into the graph at
// construction time, typically statistics precomputed by a pipeline
// builder. The engine exposes no mechanism to mutate literals afterwards.
func Literal(v domain.Value) SlotSource { return literalSource{value: v} }

// Placeholder is a named, typed external input port with no owning tank.
// It exists only at the graph boundary and doubles as a SlotSource so it
// can be wired directly into tank slots.
type Placeholder struct {
	name     string
	kind     domain.Kind
	def      domain.Value
	consumed int
}

func (*Placeholder) isSlotSource() {}

// Name returns the placeholder's namespaced identifier.
func (p *Placeholder) Name() string { return p.name }

// PortKind returns the declared value kind.
func (p *Placeholder) PortKind() domain.Kind { return p.kind }

// Key returns the boundary-dictionary key addressing this placeholder.
func (p *Placeholder) Key() domain.PortKey { return domain.NamedKey(p.name) }

// TubeRef addresses the named tube of a tank instance within one
// waterwork. Obtained from TankRef.Tube and validated when wired.
type TubeRef struct {
	tank string
	tube string
}

func (TubeRef) isSlotSource() {}

// TankName returns the owning tank instance's namespaced name.
func (r TubeRef) TankName() string { return r.tank }

// TubeName returns the tube's port name.
func (r TubeRef) TubeName() string { return r.tube }

// Key returns the boundary-dictionary key addressing this tube.
func (r TubeRef) Key() domain.PortKey { return domain.TubeKey(r.tank, r.tube) }

// Wiring maps each declared slot name of a tank to its source.
type Wiring map[string]SlotSource

// node is a tank instance owned by a waterwork: the stateless operation,
// its unique namespaced name, and one wired source per declared slot.
type node struct {
	name  string
	tank  ports.Tank
	index int
	slots map[string]SlotSource
}

// TankRef is the construction-time handle to an added tank instance.
type TankRef struct {
	node *node
}

// Name returns the instance's namespaced name.
func (r *TankRef) Name() string { return r.node.name }

// Tube returns a reference to the named tube of this instance. The tube
// name is validated when the reference is wired or exported.
func (r *TankRef) Tube(name string) TubeRef {
	return TubeRef{tank: r.node.name, tube: name}
}

// Waterwork is a directed acyclic graph of tank instances and free-standing
// placeholders, connected by wiring tubes to slots. It is built once by a
// pipeline builder, frozen, and then executed via Pour and Pump; the frozen
// topology is immutable and safe to share across concurrent executions,
// each of which owns its call-local value store.
type Waterwork struct {
	name string
	ns   *namespace

	// mu guards construction state. After Freeze the graph is read-only
	// and executions take no locks beyond the frozen check.
	mu sync.RWMutex

	nodes        map[string]*node
	order        []*node
	placeholders map[string]*Placeholder
	phOrder      []*Placeholder

	// aliasOf maps a dangling tube to its exported tap alias; aliases
	// maps back. Both live in the same name universe as placeholders.
	aliasOf map[domain.PortKey]string
	aliases map[string]domain.PortKey

	observers []ports.ExecObserver

	frozen bool
	topo   []*node
	taps   []domain.PortKey
}

// Option configures a Waterwork at creation.
type Option func(*Waterwork)

// WithObserver attaches an execution observer. Observers receive events
// for every pour and pump on the graph and must be safe for concurrent
// use.
func WithObserver(obs ports.ExecObserver) Option {
	return func(w *Waterwork) {
		if obs != nil {
			w.observers = append(w.observers, obs)
		}
	}
}

// New creates an empty waterwork with the given name, ready to accumulate
// placeholders and tank instances.
func New(name string, opts ...Option) *Waterwork {
	w := &Waterwork{
		name:         name,
		ns:           newNamespace(),
		nodes:        make(map[string]*node),
		placeholders: make(map[string]*Placeholder),
		aliasOf:      make(map[domain.PortKey]string),
		aliases:      make(map[string]domain.PortKey),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the graph's name.
func (w *Waterwork) Name() string { return w.name }

// PlaceholderOption configures a placeholder declaration.
type PlaceholderOption func(*Placeholder)

// WithDefault declares a value used when a pour call's funnel dictionary
// omits the placeholder.
func WithDefault(v domain.Value) PlaceholderOption {
	return func(p *Placeholder) { p.def = v }
}

// Placeholder declares a named, typed external input in the current scope.
// The name must be unique among placeholders and tap aliases.
func (w *Waterwork) Placeholder(name string, kind domain.Kind, opts ...PlaceholderOption) (*Placeholder, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return nil, domain.ErrFrozen
	}
	qualified := w.ns.qualify(name)
	if err := w.checkNameFree(qualified); err != nil {
		return nil, err
	}
	p := &Placeholder{name: qualified, kind: kind}
	for _, opt := range opts {
		opt(p)
	}
	if p.def != nil && domain.KindOf(p.def) != kind {
		return nil, domain.NewPortError(p.Key(), "placeholder",
			fmt.Errorf("default value kind %s does not match declared kind %s: %w",
				domain.KindOf(p.def), kind, domain.ErrTypeMismatch))
	}
	w.placeholders[qualified] = p
	w.phOrder = append(w.phOrder, p)
	return p, nil
}

// AddOption configures a tank instantiation.
type AddOption func(*addOptions)

type addOptions struct{ name string }

// WithName overrides the auto-generated instance name. The name is still
// qualified by the current scope and must be unique within the graph.
func WithName(name string) AddOption {
	return func(o *addOptions) { o.name = name }
}

// Add instantiates a tank in the graph, wiring every declared slot to the
// supplied source. Omitting a slot, or naming one the tank does not
// declare, fails with ErrMissingWiring; duplicate explicit names fail with
// ErrNameCollision. Wiring is validated eagerly so a partially wired tank
// never enters the graph.
func (w *Waterwork) Add(tank ports.Tank, wiring Wiring, opts ...AddOption) (*TankRef, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return nil, domain.ErrFrozen
	}
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	var name string
	if o.name != "" {
		name = w.ns.qualify(o.name)
		if err := w.checkNameFree(name); err != nil {
			return nil, err
		}
	} else {
		name = w.ns.next(tank.TypeName())
		if err := w.checkNameFree(name); err != nil {
			return nil, err
		}
	}

	slotKeys := tank.SlotKeys()
	declared := make(map[string]struct{}, len(slotKeys))
	for _, s := range slotKeys {
		declared[s] = struct{}{}
	}
	for s := range wiring {
		if _, ok := declared[s]; !ok {
			return nil, domain.NewPortError(domain.SlotKey(name, s), "add_tank",
				fmt.Errorf("tank type %s declares no such slot: %w", tank.TypeName(), domain.ErrMissingWiring))
		}
	}

	n := &node{name: name, tank: tank, index: len(w.order), slots: make(map[string]SlotSource, len(slotKeys))}
	for _, s := range slotKeys {
		src, ok := wiring[s]
		if !ok || src == nil {
			return nil, domain.NewPortError(domain.SlotKey(name, s), "add_tank", domain.ErrMissingWiring)
		}
		if err := w.checkSource(domain.SlotKey(name, s), src); err != nil {
			return nil, err
		}
		n.slots[s] = src
	}

	// All-or-nothing: mutate the graph only after every slot validated.
	for _, src := range n.slots {
		if p, ok := src.(*Placeholder); ok {
			p.consumed++
		}
	}
	w.nodes[name] = n
	w.order = append(w.order, n)
	return &TankRef{node: n}, nil
}

// checkNameFree reports ErrNameCollision when the namespaced identifier is
// already taken by a tank, placeholder, or tap alias.
func (w *Waterwork) checkNameFree(name string) error {
	if _, ok := w.nodes[name]; ok {
		return domain.NewPortError(domain.NamedKey(name), "name", domain.ErrNameCollision)
	}
	if _, ok := w.placeholders[name]; ok {
		return domain.NewPortError(domain.NamedKey(name), "name", domain.ErrNameCollision)
	}
	if _, ok := w.aliases[name]; ok {
		return domain.NewPortError(domain.NamedKey(name), "name", domain.ErrNameCollision)
	}
	return nil
}

// checkSource validates that a slot source refers to members of this
// graph and, for tube references, that the tube exists on its owner.
func (w *Waterwork) checkSource(slot domain.PortKey, src SlotSource) error {
	switch s := src.(type) {
	case literalSource:
		if s.value == nil {
			return domain.NewPortError(slot, "wire", fmt.Errorf("nil literal: %w", domain.ErrMissingWiring))
		}
	case *Placeholder:
		if w.placeholders[s.name] != s {
			return domain.NewPortError(slot, "wire",
				fmt.Errorf("placeholder %s belongs to another waterwork: %w", s.name, domain.ErrMissingWiring))
		}
	case TubeRef:
		owner, ok := w.nodes[s.tank]
		if !ok {
			return domain.NewPortError(slot, "wire",
				fmt.Errorf("unknown tank %s: %w", s.tank, domain.ErrMissingWiring))
		}
		if !hasKey(owner.tank.TubeKeys(), s.tube) {
			return domain.NewPortError(slot, "wire",
				fmt.Errorf("tank type %s declares no tube %q: %w", owner.tank.TypeName(), s.tube, domain.ErrMissingWiring))
		}
	default:
		return domain.NewPortError(slot, "wire", fmt.Errorf("unsupported slot source %T: %w", src, domain.ErrMissingWiring))
	}
	return nil
}

func hasKey(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

// Rewire retargets one slot of an existing tank before the graph is
// frozen. A tube source that would make the slot's tank feed itself,
// directly or transitively, fails with ErrCycleDetected and leaves the
// graph unmodified.
func (w *Waterwork) Rewire(tankName, slot string, src SlotSource) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return domain.ErrFrozen
	}
	n, ok := w.nodes[tankName]
	if !ok {
		return domain.NewPortError(domain.SlotKey(tankName, slot), "rewire",
			fmt.Errorf("unknown tank: %w", domain.ErrMissingWiring))
	}
	if _, ok := n.slots[slot]; !ok {
		return domain.NewPortError(domain.SlotKey(tankName, slot), "rewire",
			fmt.Errorf("tank type %s declares no such slot: %w", n.tank.TypeName(), domain.ErrMissingWiring))
	}
	if err := w.checkSource(domain.SlotKey(tankName, slot), src); err != nil {
		return err
	}

	// Reachability check before mutating: wiring source's tank -> n is a
	// new edge, so a path from n back to the source tank is a cycle.
	if tube, ok := src.(TubeRef); ok {
		if tube.tank == tankName || w.reaches(n, tube.tank) {
			return domain.NewPortError(domain.SlotKey(tankName, slot), "rewire", domain.ErrCycleDetected)
		}
	}

	if p, ok := n.slots[slot].(*Placeholder); ok {
		p.consumed--
	}
	if p, ok := src.(*Placeholder); ok {
		p.consumed++
	}
	n.slots[slot] = src
	return nil
}

// reaches reports whether target is reachable downstream from start along
// tube-to-slot wiring edges.
func (w *Waterwork) reaches(start *node, target string) bool {
	consumers := make(map[string][]*node, len(w.nodes))
	for _, n := range w.order {
		for _, src := range n.slots {
			if tube, ok := src.(TubeRef); ok {
				consumers[tube.tank] = append(consumers[tube.tank], n)
			}
		}
	}
	seen := map[string]bool{start.name: true}
	stack := []*node{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range consumers[cur.name] {
			if next.name == target {
				return true
			}
			if !seen[next.name] {
				seen[next.name] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// NameTap exports a tube under a stable alias key. The tap dictionary of
// Pour emits the tube's value under the alias, and Pump accepts the alias
// interchangeably with the tube's own path. Aliases share the placeholder
// name universe.
func (w *Waterwork) NameTap(tube TubeRef, alias string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return domain.ErrFrozen
	}
	if err := w.checkSource(tube.Key(), tube); err != nil {
		return err
	}
	qualified := w.ns.qualify(alias)
	if err := w.checkNameFree(qualified); err != nil {
		return err
	}
	if prev, ok := w.aliasOf[tube.Key()]; ok {
		return domain.NewPortError(tube.Key(), "name_tap",
			fmt.Errorf("tube already exported as %q: %w", prev, domain.ErrNameCollision))
	}
	w.aliasOf[tube.Key()] = qualified
	w.aliases[qualified] = tube.Key()
	return nil
}

// EnterScope opens a named sub-scope: subsequently added members are
// namespaced under it. Scopes nest.
func (w *Waterwork) EnterScope(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.frozen {
		return domain.ErrFrozen
	}
	return w.ns.enter(name)
}

// ExitScope closes the innermost open scope.
func (w *Waterwork) ExitScope() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ns.exit()
}

// InScope runs fn with a named sub-scope open, closing it afterwards even
// when fn fails.
func (w *Waterwork) InScope(name string, fn func() error) error {
	if err := w.EnterScope(name); err != nil {
		return err
	}
	defer w.ExitScope() //nolint:errcheck // scope was opened above
	return fn()
}

// Freeze validates and finalizes the topology: every placeholder must feed
// at least one slot (an unconsumed placeholder could never be reconstructed
// by pump), and the tank evaluation order is fixed to the topological order
// with construction-order tie-breaking. After Freeze the graph is immutable
// and may be executed concurrently.
func (w *Waterwork) Freeze() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.frozen {
		return domain.ErrFrozen
	}
	for _, p := range w.phOrder {
		if p.consumed == 0 {
			return domain.NewPortError(p.Key(), "freeze",
				fmt.Errorf("placeholder feeds no slot: %w", domain.ErrMissingWiring))
		}
	}

	topo, err := w.topoOrder()
	if err != nil {
		return err
	}
	w.topo = topo

	// Taps: every dangling tube, in construction order.
	consumed := make(map[domain.PortKey]bool)
	for _, n := range w.order {
		for _, src := range n.slots {
			if tube, ok := src.(TubeRef); ok {
				consumed[tube.Key()] = true
			}
		}
	}
	for _, n := range w.order {
		for _, t := range n.tank.TubeKeys() {
			key := domain.TubeKey(n.name, t)
			if !consumed[key] {
				w.taps = append(w.taps, key)
			}
		}
	}

	w.frozen = true
	return nil
}

// topoOrder computes the evaluation order with Kahn's algorithm, breaking
// ties by construction order so results are deterministic.
func (w *Waterwork) topoOrder() ([]*node, error) {
	indeg := make(map[string]int, len(w.nodes))
	consumers := make(map[string][]*node, len(w.nodes))
	for _, n := range w.order {
		for _, src := range n.slots {
			if tube, ok := src.(TubeRef); ok {
				indeg[n.name]++
				consumers[tube.tank] = append(consumers[tube.tank], n)
			}
		}
	}

	ready := make([]*node, 0, len(w.order))
	for _, n := range w.order {
		if indeg[n.name] == 0 {
			ready = append(ready, n)
		}
	}

	out := make([]*node, 0, len(w.order))
	for len(ready) > 0 {
		// Lowest construction index first.
		best := 0
		for i := 1; i < len(ready); i++ {
			if ready[i].index < ready[best].index {
				best = i
			}
		}
		cur := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		out = append(out, cur)

		for _, next := range consumers[cur.name] {
			indeg[next.name]--
			if indeg[next.name] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(out) != len(w.order) {
		return nil, domain.ErrCycleDetected
	}
	return out, nil
}

// Frozen reports whether the topology has been finalized.
func (w *Waterwork) Frozen() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frozen
}

// Taps returns the boundary output keys of the frozen graph: every
// dangling tube, aliased tubes under their alias key.
func (w *Waterwork) Taps() []domain.PortKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.PortKey, len(w.taps))
	for i, key := range w.taps {
		if alias, ok := w.aliasOf[key]; ok {
			out[i] = domain.NamedKey(alias)
		} else {
			out[i] = key
		}
	}
	return out
}

// Funnels returns the boundary input keys of the graph: one per
// placeholder, in declaration order.
func (w *Waterwork) Funnels() []domain.PortKey {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.PortKey, len(w.phOrder))
	for i, p := range w.phOrder {
		out[i] = p.Key()
	}
	return out
}
