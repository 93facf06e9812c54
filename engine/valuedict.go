package engine

import (
	"sort"

	"github.com/cascata/waterworks/domain"
)

// ValueDict is a boundary value dictionary: a mapping from structured port
// identifiers to values. String-path addressing is layered on top as a
// pure serialization concern: Set/Get by PortKey and SetPath/GetPath by
// canonical path resolve to the identical entry.
type ValueDict struct {
	values map[domain.PortKey]domain.Value
}

// NewValueDict creates an empty dictionary.
func NewValueDict() *ValueDict {
	return &ValueDict{values: make(map[domain.PortKey]domain.Value)}
}

// Set stores a value under the structured key, replacing any previous
// entry. It returns the dictionary for chaining.
func (d *ValueDict) Set(key domain.PortKey, v domain.Value) *ValueDict {
	d.values[key] = v
	return d
}

// SetPath stores a value under the key encoded by path.
func (d *ValueDict) SetPath(path string, v domain.Value) error {
	key, err := domain.ParsePortPath(path)
	if err != nil {
		return err
	}
	d.values[key] = v
	return nil
}

// Get retrieves the value stored under the structured key.
func (d *ValueDict) Get(key domain.PortKey) (domain.Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// GetPath retrieves the value stored under the key encoded by path.
func (d *ValueDict) GetPath(path string) (domain.Value, bool) {
	key, err := domain.ParsePortPath(path)
	if err != nil {
		return nil, false
	}
	return d.Get(key)
}

// Len returns the number of entries.
func (d *ValueDict) Len() int { return len(d.values) }

// Keys returns the entry keys sorted by their canonical path, for
// deterministic iteration.
func (d *ValueDict) Keys() []domain.PortKey {
	keys := make([]domain.PortKey, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Clone returns a shallow copy (values are shared; they are treated as
// immutable throughout the engine).
func (d *ValueDict) Clone() *ValueDict {
	out := NewValueDict()
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

// Merge copies every entry of o into the dictionary, overwriting
// collisions, and returns the receiver.
func (d *ValueDict) Merge(o *ValueDict) *ValueDict {
	if o == nil {
		return d
	}
	for k, v := range o.values {
		d.values[k] = v
	}
	return d
}

// WithPrefix returns a new dictionary with every key nested under prefix,
// for merging a sub-graph's boundary dictionary into an enclosing one.
func (d *ValueDict) WithPrefix(prefix string) *ValueDict {
	out := NewValueDict()
	for k, v := range d.values {
		out.values[k.WithPrefix(prefix)] = v
	}
	return out
}

// StripPrefix returns a new dictionary holding only the entries nested
// under prefix, with the prefix removed. It inverts WithPrefix when
// extracting a sub-graph's dictionary from an enclosing one.
func (d *ValueDict) StripPrefix(prefix string) *ValueDict {
	out := NewValueDict()
	for k, v := range d.values {
		if stripped, ok := k.StripPrefix(prefix); ok {
			out.values[stripped] = v
		}
	}
	return out
}
