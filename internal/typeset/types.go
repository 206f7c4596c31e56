// Package typeset holds the immutable structural model the metrics engine works on:
// one TypeDescriptor per analyzed type, grouped into the TypeSet of a package.
package typeset

// RootType is the universal root of the JVM hierarchy. It terminates supertype
// chains and is never counted as a level.
const RootType = "java.lang.Object"

// Kind classifies a descriptor.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindRecord    Kind = "record"
)

// MethodSignature is one declared method. Params holds the parameter type
// references in declaration order.
type MethodSignature struct {
	Name   string   `json:"name"`
	Params []string `json:"params,omitempty"`
}

// TypeDescriptor is the structural summary of one type.
//
// All type references are binary names (`shapes.Circle`, `int`,
// `[Lshapes.Point;`). Supertype is empty when there is no further supertype;
// a RootType supertype is normalized to empty by NewTypeSet.
type TypeDescriptor struct {
	Name       string            `json:"name"`
	SimpleName string            `json:"simpleName"`
	Kind       Kind              `json:"kind,omitempty"`
	Supertype  string            `json:"supertype,omitempty"`
	Interfaces []string          `json:"interfaces,omitempty"`
	Fields     []string          `json:"fields,omitempty"`
	Methods    []MethodSignature `json:"methods,omitempty"`
}

// HasSupertype reports whether the descriptor names a supertype other than the root.
func (d *TypeDescriptor) HasSupertype() bool {
	return d.Supertype != "" && d.Supertype != RootType
}

// DeclaredMethodCount returns the number of methods the type itself declares.
func (d *TypeDescriptor) DeclaredMethodCount() int {
	return len(d.Methods)
}

func (d *TypeDescriptor) clone() *TypeDescriptor {
	c := &TypeDescriptor{
		Name:       d.Name,
		SimpleName: d.SimpleName,
		Kind:       d.Kind,
		Supertype:  d.Supertype,
		Interfaces: append([]string(nil), d.Interfaces...),
		Fields:     append([]string(nil), d.Fields...),
	}
	if len(d.Methods) > 0 {
		c.Methods = make([]MethodSignature, len(d.Methods))
		for i, m := range d.Methods {
			c.Methods[i] = MethodSignature{Name: m.Name, Params: append([]string(nil), m.Params...)}
		}
	}
	if c.Supertype == RootType {
		c.Supertype = ""
	}
	if c.Kind == "" {
		c.Kind = KindClass
	}
	return c
}
