// Package engine implements the waterwork: a directed acyclic graph of
// tank instances and placeholders, constructed once, frozen, and then
// executed forward (pour) and backward (pump) arbitrarily many times.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cascata/waterworks/domain"
)

// namespace assigns collision-free hierarchical identifiers to graph
// members as sub-graphs are nested inside named scopes. Auto-generated
// names append a zero-based counter per (scope, type name) pair, so
// re-running the same construction code yields identical identifiers,
// a prerequisite for matching a previously computed tap or funnel
// dictionary by string key.
type namespace struct {
	scopes   []string
	counters map[string]int
}

func newNamespace() *namespace {
	return &namespace{counters: make(map[string]int)}
}

func (ns *namespace) prefix() string { return strings.Join(ns.scopes, "/") }

// qualify nests name under the current scope path.
func (ns *namespace) qualify(name string) string {
	if p := ns.prefix(); p != "" {
		return p + "/" + name
	}
	return name
}

// next returns the auto-generated name for the next instance of typeName
// in the current scope and advances the counter.
func (ns *namespace) next(typeName string) string {
	key := ns.prefix() + "\x00" + typeName
	n := ns.counters[key]
	ns.counters[key] = n + 1
	return ns.qualify(typeName + "_" + strconv.Itoa(n))
}

func (ns *namespace) enter(scope string) error {
	if scope == "" || strings.Contains(scope, "/") {
		return fmt.Errorf("invalid scope name %q: %w", scope, domain.ErrInvalidPath)
	}
	ns.scopes = append(ns.scopes, scope)
	return nil
}

func (ns *namespace) exit() error {
	if len(ns.scopes) == 0 {
		return fmt.Errorf("no open scope to exit: %w", domain.ErrInvalidPath)
	}
	ns.scopes = ns.scopes[:len(ns.scopes)-1]
	return nil
}
