package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"da/internal/typeset"
)

func names(ds []*typeset.TypeDescriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name)
	}
	return out
}

func shapesSet() *typeset.TypeSet {
	return typeset.MustNew("shapes",
		&typeset.TypeDescriptor{Name: "shapes.Drawable", SimpleName: "Drawable", Kind: typeset.KindInterface},
		&typeset.TypeDescriptor{Name: "shapes.Point", SimpleName: "Point"},
		&typeset.TypeDescriptor{
			Name:       "shapes.Shape",
			SimpleName: "Shape",
			Interfaces: []string{"shapes.Drawable"},
			Methods:    []typeset.MethodSignature{{Name: "moveTo", Params: []string{"shapes.Point"}}},
		},
		&typeset.TypeDescriptor{
			Name:       "shapes.Circle",
			SimpleName: "Circle",
			Supertype:  "shapes.Shape",
			Fields:     []string{"shapes.Point", "double", "shapes.Circle"},
			Methods: []typeset.MethodSignature{
				{Name: "scale", Params: []string{"double"}},
				{Name: "contains", Params: []string{"shapes.Point"}},
				{Name: "overlaps", Params: []string{"shapes.Circle"}},
			},
		},
		&typeset.TypeDescriptor{
			Name:      "shapes.Canvas",
			Supertype: "javax.swing.JPanel",
			Fields:    []string{"java.util.List", "[Lshapes.Shape;"},
		},
	)
}

func TestParseInterfaceMode(t *testing.T) {
	tests := []struct {
		in      string
		want    InterfaceMode
		wantErr bool
	}{
		{"", InterfacesFaithful, false},
		{"faithful", InterfacesFaithful, false},
		{" Symmetric ", InterfacesSymmetric, false},
		{"both", "", true},
	}
	for _, tt := range tests {
		got, err := ParseInterfaceMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseInterfaceMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseInterfaceMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProviders(t *testing.T) {
	set := shapesSet()
	eval := NewEvaluator(set, InterfacesFaithful)

	tests := []struct {
		typ  string
		want []string
	}{
		{"shapes.Circle", []string{"shapes.Point", "shapes.Shape"}},
		{"shapes.Shape", []string{"shapes.Drawable", "shapes.Point"}},
		{"shapes.Point", []string{}},
		// external supertype, array field and library field are not members
		{"shapes.Canvas", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			c, ok := set.Lookup(tt.typ)
			require.True(t, ok)
			assert.Equal(t, tt.want, names(eval.Providers(c)))
		})
	}
}

func TestProviders_NeverSelf(t *testing.T) {
	set := typeset.MustNew("p", &typeset.TypeDescriptor{
		Name:       "p.Node",
		Supertype:  "p.Node",
		Fields:     []string{"p.Node"},
		Interfaces: []string{"p.Node"},
		Methods:    []typeset.MethodSignature{{Name: "link", Params: []string{"p.Node"}}},
	})
	eval := NewEvaluator(set, InterfacesSymmetric)
	node, _ := set.Lookup("p.Node")

	assert.Empty(t, eval.Providers(node))
	assert.Empty(t, eval.Clients(node))
}

func TestClientReferences(t *testing.T) {
	set := shapesSet()
	eval := NewEvaluator(set, InterfacesFaithful)
	get := func(name string) *typeset.TypeDescriptor {
		d, ok := set.Lookup(name)
		require.True(t, ok, name)
		return d
	}

	t.Run("field and parameter collapse to one reference", func(t *testing.T) {
		refs := eval.ClientReferences(get("shapes.Point"), get("shapes.Circle"))
		assert.Equal(t, []string{"shapes.Point"}, refs)
	})

	t.Run("supertype records the provider's own supertype", func(t *testing.T) {
		refs := eval.ClientReferences(get("shapes.Shape"), get("shapes.Circle"))
		assert.Equal(t, []string{typeset.RootType}, refs)
	})

	t.Run("self is never a client", func(t *testing.T) {
		assert.Nil(t, eval.ClientReferences(get("shapes.Circle"), get("shapes.Circle")))
	})

	t.Run("faithful mode ignores implementers", func(t *testing.T) {
		assert.Nil(t, eval.ClientReferences(get("shapes.Drawable"), get("shapes.Shape")))
	})

	t.Run("symmetric mode counts implementers", func(t *testing.T) {
		sym := NewEvaluator(set, InterfacesSymmetric)
		refs := sym.ClientReferences(get("shapes.Drawable"), get("shapes.Shape"))
		assert.Equal(t, []string{"shapes.Drawable"}, refs)
	})
}

func TestClientReferences_SupertypeAndField(t *testing.T) {
	set := typeset.MustNew("p",
		&typeset.TypeDescriptor{Name: "p.Base", Supertype: "p.Root"},
		&typeset.TypeDescriptor{Name: "p.Root"},
		&typeset.TypeDescriptor{Name: "p.Derived", Supertype: "p.Base", Fields: []string{"p.Base"}},
	)
	eval := NewEvaluator(set, InterfacesFaithful)
	base, _ := set.Lookup("p.Base")
	derived, _ := set.Lookup("p.Derived")

	assert.Equal(t, []string{"p.Base", "p.Root"}, eval.ClientReferences(base, derived))
}

func TestClients(t *testing.T) {
	set := shapesSet()
	point, _ := set.Lookup("shapes.Point")
	drawable, _ := set.Lookup("shapes.Drawable")

	faithful := NewEvaluator(set, InterfacesFaithful)
	assert.Equal(t, []string{"shapes.Circle", "shapes.Shape"}, names(faithful.Clients(point)))
	assert.Empty(t, faithful.Clients(drawable))

	symmetric := NewEvaluator(set, InterfacesSymmetric)
	assert.Equal(t, []string{"shapes.Shape"}, names(symmetric.Clients(drawable)))
}

func TestMechanisms(t *testing.T) {
	set := shapesSet()
	circle, _ := set.Lookup("shapes.Circle")
	point, _ := set.Lookup("shapes.Point")
	shape, _ := set.Lookup("shapes.Shape")

	assert.Equal(t, []Mechanism{ViaField, ViaParameter}, Mechanisms(circle, point))
	assert.Equal(t, []Mechanism{ViaSupertype}, Mechanisms(circle, shape))
	assert.Nil(t, Mechanisms(circle, circle))
}

func TestEdges(t *testing.T) {
	eval := NewEvaluator(shapesSet(), InterfacesFaithful)

	want := []Edge{
		{From: "shapes.Circle", To: "shapes.Point", Mechanisms: []Mechanism{ViaField, ViaParameter}},
		{From: "shapes.Circle", To: "shapes.Shape", Mechanisms: []Mechanism{ViaSupertype}},
		{From: "shapes.Shape", To: "shapes.Drawable", Mechanisms: []Mechanism{ViaInterface}},
		{From: "shapes.Shape", To: "shapes.Point", Mechanisms: []Mechanism{ViaParameter}},
	}
	assert.Equal(t, want, eval.Edges())
}

func TestNewEvaluator_Mode(t *testing.T) {
	set := shapesSet()
	assert.Equal(t, InterfacesFaithful, NewEvaluator(set, "").Mode())
	assert.Equal(t, InterfacesSymmetric, NewEvaluator(set, InterfacesSymmetric).Mode())
}
