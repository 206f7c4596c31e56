package typeset

import (
	"fmt"
	"sort"
	"strings"
)

// TypeSet is the read-only collection of descriptors analyzed in one run.
// Types are kept sorted by qualified name.
type TypeSet struct {
	pkg      string
	types    []*TypeDescriptor
	byName   map[string]*TypeDescriptor
	ancestry map[string]string
}

// Option configures a TypeSet at construction time.
type Option func(*TypeSet)

// WithAncestry records the supertypes of types outside the set (name → supertype
// name, empty for root). Only depth counting consults it.
func WithAncestry(ancestry map[string]string) Option {
	return func(s *TypeSet) {
		for name, super := range ancestry {
			if super == RootType {
				super = ""
			}
			s.ancestry[name] = super
		}
	}
}

// DuplicateTypeError is returned when two descriptors share a qualified name.
type DuplicateTypeError struct {
	Name string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("duplicate type %q", e.Name)
}

// New builds a TypeSet. Descriptors are copied, so later changes to the
// arguments do not leak into the set.
func New(pkg string, descriptors []*TypeDescriptor, opts ...Option) (*TypeSet, error) {
	s := &TypeSet{
		pkg:      pkg,
		types:    make([]*TypeDescriptor, 0, len(descriptors)),
		byName:   make(map[string]*TypeDescriptor, len(descriptors)),
		ancestry: make(map[string]string),
	}

	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("type descriptor without a qualified name")
		}
		if _, dup := s.byName[d.Name]; dup {
			return nil, &DuplicateTypeError{Name: d.Name}
		}
		c := d.clone()
		s.byName[c.Name] = c
		s.types = append(s.types, c)
	}

	sort.Slice(s.types, func(i, j int) bool {
		return s.types[i].Name < s.types[j].Name
	})

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(pkg string, descriptors ...*TypeDescriptor) *TypeSet {
	s, err := New(pkg, descriptors)
	if err != nil {
		panic(err)
	}
	return s
}

// Package returns the package the set was loaded from.
func (s *TypeSet) Package() string { return s.pkg }

// Len returns the number of types.
func (s *TypeSet) Len() int { return len(s.types) }

// Types returns the descriptors sorted by qualified name. Callers must not modify
// the returned descriptors.
func (s *TypeSet) Types() []*TypeDescriptor {
	out := make([]*TypeDescriptor, len(s.types))
	copy(out, s.types)
	return out
}

// Lookup returns the member with the given qualified name.
func (s *TypeSet) Lookup(name string) (*TypeDescriptor, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Contains reports whether name is a member of the set.
func (s *TypeSet) Contains(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Find looks a type up by qualified name first, then by simple name. A simple
// name shared by several members is ambiguous and not found.
func (s *TypeSet) Find(name string) (*TypeDescriptor, bool) {
	if d, ok := s.byName[name]; ok {
		return d, true
	}
	var found *TypeDescriptor
	for _, d := range s.types {
		if d.SimpleName == name {
			if found != nil {
				return nil, false
			}
			found = d
		}
	}
	return found, found != nil
}

// SupertypeOf returns the supertype recorded for name, whether name is a member
// or an external ancestor. known is false when the set has no information.
func (s *TypeSet) SupertypeOf(name string) (super string, known bool) {
	if d, ok := s.byName[name]; ok {
		return d.Supertype, true
	}
	super, known = s.ancestry[name]
	return super, known
}

// TotalDeclaredMethods sums DeclaredMethodCount over the set.
func (s *TypeSet) TotalDeclaredMethods() int {
	total := 0
	for _, d := range s.types {
		total += d.DeclaredMethodCount()
	}
	return total
}
