// Package merge combines the meshes of several shapes into one.
package merge

import (
	"fmt"
	"strings"

	"github.com/philipparndt/stp2stl/pkg/mesh"
)

// Policy selects how shape meshes are combined
type Policy int

const (
	// Concatenate appends the meshes and keeps every vertex
	Concatenate Policy = iota
	// Weld concatenates and then merges vertices closer than epsilon
	Weld
)

func (p Policy) String() string {
	switch p {
	case Concatenate:
		return "concatenate"
	case Weld:
		return "weld"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses "concatenate" or "weld", ignoring case
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "concatenate", "concat":
		return Concatenate, nil
	case "weld":
		return Weld, nil
	}
	return 0, fmt.Errorf("unknown merge policy %q (expected concatenate or weld)", s)
}

// MarshalText implements encoding.TextMarshaler
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Merge combines meshes in order into a new mesh. The inputs are not
// modified. The result takes the name of the first mesh and the smallest
// degenerate epsilon of all inputs. With Weld and a positive epsilon,
// vertices closer than epsilon are merged afterwards; removed reports how
// many vertices that eliminated.
func Merge(meshes []*mesh.Mesh, policy Policy, epsilon float64) (merged *mesh.Mesh, removed int) {
	name := ""
	eps := 0.0
	for i, m := range meshes {
		if i == 0 {
			name = m.Name
			eps = m.Epsilon
		}
		eps = min(eps, m.Epsilon)
	}

	merged = mesh.New(name, eps)
	for _, m := range meshes {
		merged.Append(m)
	}
	if policy == Weld {
		removed = merged.Weld(epsilon)
	}
	return merged, removed
}
