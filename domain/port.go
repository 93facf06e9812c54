package domain

import (
	"fmt"
	"strings"
)

// PortSide distinguishes the three addressable port families of a graph.
type PortSide int

const (
	// SideName addresses a free-standing named port: a placeholder
	// (funnel) or a tap alias. Its path is the bare name.
	SideName PortSide = iota
	// SideTube addresses a tank output. Its path is "owner/tubes/port".
	SideTube
	// SideSlot addresses a tank input. Its path is "owner/slots/port".
	SideSlot
)

const (
	tubeMarker = "/tubes/"
	slotMarker = "/slots/"
)

// PortKey is the immutable identity of a single named input or output:
// the owning operation's namespaced name, the port name, and which side of
// the operation the port sits on. Two ports are the same iff their keys
// are equal; PortKey is comparable and used directly as a map key.
type PortKey struct {
	Owner string
	Port  string
	Side  PortSide
}

// NamedKey addresses a placeholder or tap alias by its bare name.
func NamedKey(name string) PortKey {
	return PortKey{Owner: name, Side: SideName}
}

// TubeKey addresses the named tube of a tank instance.
func TubeKey(owner, tube string) PortKey {
	return PortKey{Owner: owner, Port: tube, Side: SideTube}
}

// SlotKey addresses the named slot of a tank instance.
func SlotKey(owner, slot string) PortKey {
	return PortKey{Owner: owner, Port: slot, Side: SideSlot}
}

// String encodes the key as its canonical string path. The encoding is a
// pure serialization layer over the structured key; ParsePortPath inverts
// it exactly.
func (k PortKey) String() string {
	switch k.Side {
	case SideTube:
		return k.Owner + tubeMarker + k.Port
	case SideSlot:
		return k.Owner + slotMarker + k.Port
	default:
		return k.Owner
	}
}

// WithPrefix returns the key with its owner nested under prefix.
func (k PortKey) WithPrefix(prefix string) PortKey {
	if prefix == "" {
		return k
	}
	k.Owner = prefix + "/" + k.Owner
	return k
}

// StripPrefix returns the key with prefix removed from its owner and true,
// or the key unchanged and false when the owner is not nested under prefix.
func (k PortKey) StripPrefix(prefix string) (PortKey, bool) {
	if prefix == "" {
		return k, true
	}
	rest, ok := strings.CutPrefix(k.Owner, prefix+"/")
	if !ok {
		return k, false
	}
	k.Owner = rest
	return k, true
}

// ParsePortPath decodes a canonical string path into a structured PortKey.
// Paths containing a "/tubes/" or "/slots/" segment address tank ports;
// anything else is a bare name (placeholder or tap alias).
func ParsePortPath(path string) (PortKey, error) {
	if path == "" {
		return PortKey{}, fmt.Errorf("empty port path: %w", ErrInvalidPath)
	}
	for _, marker := range []struct {
		sep  string
		side PortSide
	}{{tubeMarker, SideTube}, {slotMarker, SideSlot}} {
		ix := strings.LastIndex(path, marker.sep)
		if ix < 0 {
			continue
		}
		owner, port := path[:ix], path[ix+len(marker.sep):]
		if owner == "" || port == "" || strings.Contains(port, "/") {
			return PortKey{}, fmt.Errorf("malformed port path %q: %w", path, ErrInvalidPath)
		}
		return PortKey{Owner: owner, Port: port, Side: marker.side}, nil
	}
	return NamedKey(path), nil
}
