// Package dependency derives the implicit consumer → provider relation between the
// members of a TypeSet from their declared structure: supertype, field types,
// implemented interfaces and method parameter types.
package dependency

import (
	"fmt"
	"sort"
	"strings"

	"da/internal/typeset"
)

// Mechanism is the structural member through which one type references another.
type Mechanism string

const (
	ViaSupertype Mechanism = "supertype"
	ViaField     Mechanism = "field"
	ViaInterface Mechanism = "interface"
	ViaParameter Mechanism = "parameter"
)

// InterfaceMode selects how the interface mechanism is evaluated on the client side.
type InterfaceMode string

const (
	// InterfacesFaithful compares the focal type's own interface list against the
	// focal type's name when collecting client references. This is the metric's
	// historical definition; it never matches for well-formed input.
	InterfacesFaithful InterfaceMode = "faithful"
	// InterfacesSymmetric counts cls as a client of c when cls implements c.
	InterfacesSymmetric InterfaceMode = "symmetric"
)

// ParseInterfaceMode parses a mode name. The empty string selects InterfacesFaithful.
func ParseInterfaceMode(s string) (InterfaceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(InterfacesFaithful):
		return InterfacesFaithful, nil
	case string(InterfacesSymmetric):
		return InterfacesSymmetric, nil
	default:
		return "", fmt.Errorf("invalid interface mode %q (want faithful or symmetric)", s)
	}
}

// Evaluator answers provider and client queries against one TypeSet.
type Evaluator struct {
	set  *typeset.TypeSet
	mode InterfaceMode
}

// NewEvaluator creates an evaluator. An empty mode means InterfacesFaithful.
func NewEvaluator(set *typeset.TypeSet, mode InterfaceMode) *Evaluator {
	if mode == "" {
		mode = InterfacesFaithful
	}
	return &Evaluator{set: set, mode: mode}
}

// Mode returns the interface mode in use.
func (e *Evaluator) Mode() InterfaceMode { return e.mode }

// Providers returns the distinct members of the set that c references, sorted by
// qualified name. c itself is never included.
func (e *Evaluator) Providers(c *typeset.TypeDescriptor) []*typeset.TypeDescriptor {
	seen := make(map[string]bool)
	var out []*typeset.TypeDescriptor

	add := func(name string) {
		if name == c.Name || seen[name] {
			return
		}
		d, ok := e.set.Lookup(name)
		if !ok {
			return
		}
		seen[name] = true
		out = append(out, d)
	}

	if c.HasSupertype() {
		add(c.Supertype)
	}
	for _, f := range c.Fields {
		add(f)
	}
	for _, iface := range c.Interfaces {
		add(iface)
	}
	for _, m := range c.Methods {
		for _, p := range m.Params {
			add(p)
		}
	}

	sortByName(out)
	return out
}

// ClientReferences returns the deduplicated set of references cls contributes to
// c's responsibility, sorted.
//
// The set holds type names, as recorded by each mechanism: the supertype
// mechanism records c's own supertype (RootType when c has none), the field and
// parameter mechanisms record c, and the interface mechanism records the matched
// interface. A cls that both extends c and holds a c-typed field therefore
// contributes two references, while a field plus a parameter of type c
// contribute one.
func (e *Evaluator) ClientReferences(c, cls *typeset.TypeDescriptor) []string {
	if cls.Name == c.Name {
		return nil
	}

	refs := make(map[string]struct{})

	if cls.HasSupertype() && cls.Supertype == c.Name {
		key := c.Supertype
		if !c.HasSupertype() {
			key = typeset.RootType
		}
		refs[key] = struct{}{}
	}

	for _, f := range cls.Fields {
		if f == c.Name {
			refs[c.Name] = struct{}{}
		}
	}

	switch e.mode {
	case InterfacesSymmetric:
		for _, iface := range cls.Interfaces {
			if iface == c.Name {
				refs[c.Name] = struct{}{}
			}
		}
	default:
		for _, iface := range c.Interfaces {
			if iface == c.Name {
				refs[iface] = struct{}{}
			}
		}
	}

	for _, m := range cls.Methods {
		for _, p := range m.Params {
			if p == c.Name {
				refs[c.Name] = struct{}{}
			}
		}
	}

	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	for r := range refs {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Clients returns the distinct members of the set, other than c, that contribute
// at least one client reference to c, sorted by qualified name.
func (e *Evaluator) Clients(c *typeset.TypeDescriptor) []*typeset.TypeDescriptor {
	var out []*typeset.TypeDescriptor
	for _, cls := range e.set.Types() {
		if cls.Name == c.Name {
			continue
		}
		if len(e.ClientReferences(c, cls)) > 0 {
			out = append(out, cls)
		}
	}
	return out
}

// Mechanisms lists how consumer references provider, in the fixed order
// supertype, field, interface, parameter. It is empty for self references.
func Mechanisms(consumer, provider *typeset.TypeDescriptor) []Mechanism {
	if consumer.Name == provider.Name {
		return nil
	}
	var out []Mechanism
	if consumer.HasSupertype() && consumer.Supertype == provider.Name {
		out = append(out, ViaSupertype)
	}
	if contains(consumer.Fields, provider.Name) {
		out = append(out, ViaField)
	}
	if contains(consumer.Interfaces, provider.Name) {
		out = append(out, ViaInterface)
	}
	for _, m := range consumer.Methods {
		if contains(m.Params, provider.Name) {
			out = append(out, ViaParameter)
			break
		}
	}
	return out
}

// Edge is one consumer → provider dependency inside the set.
type Edge struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Mechanisms []Mechanism `json:"mechanisms"`
}

// Edges materializes the whole dependency relation, ordered by (From, To).
func (e *Evaluator) Edges() []Edge {
	var edges []Edge
	for _, c := range e.set.Types() {
		for _, p := range e.Providers(c) {
			edges = append(edges, Edge{From: c.Name, To: p.Name, Mechanisms: Mechanisms(c, p)})
		}
	}
	return edges
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func sortByName(ds []*typeset.TypeDescriptor) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Name < ds[j].Name })
}
