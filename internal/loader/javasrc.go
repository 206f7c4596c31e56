//go:build cgo

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	daerrors "da/internal/errors"
	"da/internal/typeset"
)

// javaLang lists the java.lang types that resolve without an import.
var javaLang = map[string]bool{
	"Object": true, "String": true, "Integer": true, "Long": true, "Short": true,
	"Byte": true, "Character": true, "Boolean": true, "Double": true, "Float": true,
	"Number": true, "Enum": true, "Record": true, "Exception": true,
	"RuntimeException": true, "Error": true, "Throwable": true, "Thread": true,
	"Runnable": true, "Comparable": true, "Iterable": true, "CharSequence": true,
	"StringBuilder": true, "Class": true, "Cloneable": true, "AutoCloseable": true,
	"Void": true, "Math": true, "System": true,
}

// SourceLoader builds descriptors from the .java files of a directory using
// tree-sitter. Members the compiler synthesizes (bridge and lambda methods,
// outer-instance fields) are not visible to it.
type SourceLoader struct {
	opts     Options
	resolver *Resolver
	logger   *slog.Logger
}

// NewSourceLoader creates a Java source loader.
func NewSourceLoader(opts Options, logger *slog.Logger) (*SourceLoader, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolver, err := NewResolver(opts.classpath(), opts.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &SourceLoader{opts: opts, resolver: resolver, logger: logger}, nil
}

// Close releases classpath archives.
func (l *SourceLoader) Close() error {
	return l.resolver.Close()
}

// rawType is a declared type before name resolution.
type rawType struct {
	name       string // binary name, Outer$Inner for nested types
	kind       typeset.Kind
	super      string
	interfaces []string
	fields     []string
	methods    []rawMethod
}

type rawMethod struct {
	name   string
	params []string
}

type compilationUnit struct {
	pkg     string
	imports map[string]string
	types   []*rawType
}

// Load parses every .java file in dir.
func (l *SourceLoader) Load(ctx context.Context, dir string) (*typeset.TypeSet, error) {
	pkg, files, err := listPackage(dir, ".java")
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	var units []*compilationUnit
	for _, file := range files {
		if strings.HasSuffix(file, "module-info.java") || strings.HasSuffix(file, "package-info.java") {
			continue
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, daerrors.New(daerrors.IOError, daerrors.StageLoad, "cannot read "+file, err)
		}
		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad, "cannot parse "+file, err)
		}
		root := tree.RootNode()
		if root.HasError() {
			tree.Close()
			return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad, "syntax error in "+file, nil)
		}
		unit := parseUnit(root, src)
		tree.Close()

		if unit.pkg != pkg && !strings.HasSuffix(unit.pkg, "."+pkg) {
			return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad,
				fmt.Sprintf("%s declares package %q, not %q", file, unit.pkg, pkg), nil)
		}
		units = append(units, unit)
	}

	local := make(map[string]string) // simple or Outer.Inner → binary name
	for _, u := range units {
		for _, t := range u.types {
			rel := strings.TrimPrefix(t.name, qualify(u.pkg, ""))
			local[strings.ReplaceAll(rel, "$", ".")] = t.name
			local[SimpleName(t.name)] = t.name
		}
	}

	var descriptors []*typeset.TypeDescriptor
	for _, u := range units {
		for _, t := range u.types {
			descriptors = append(descriptors, t.descriptor(u, local))
		}
	}

	ancestry, err := resolveAncestry(descriptors, l.resolver, l.opts.Strict, l.logger)
	if err != nil {
		return nil, err
	}
	return newTypeSet(pkg, descriptors, ancestry)
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func parseUnit(root *sitter.Node, src []byte) *compilationUnit {
	u := &compilationUnit{imports: make(map[string]string)}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "package_declaration":
			for j := 0; j < int(n.NamedChildCount()); j++ {
				c := n.NamedChild(j)
				if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					u.pkg = c.Content(src)
				}
			}
		case "import_declaration":
			text := strings.TrimSpace(n.Content(src))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "import"), ";")
			text = strings.TrimSpace(text)
			if strings.HasPrefix(text, "static ") || strings.HasSuffix(text, "*") {
				continue
			}
			u.imports[text[strings.LastIndexByte(text, '.')+1:]] = text
		default:
			u.types = append(u.types, collectTypes(n, src, qualify(u.pkg, ""), "")...)
		}
	}
	return u
}

// collectTypes returns the type declared by n and every type nested in it.
func collectTypes(n *sitter.Node, src []byte, prefix, outer string) []*rawType {
	var kind typeset.Kind
	switch n.Type() {
	case "class_declaration":
		kind = typeset.KindClass
	case "interface_declaration", "annotation_type_declaration":
		kind = typeset.KindInterface
	case "enum_declaration":
		kind = typeset.KindEnum
	case "record_declaration":
		kind = typeset.KindRecord
	default:
		return nil
	}

	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	simple := nameNode.Content(src)
	name := prefix + simple
	if outer != "" {
		name = outer + "$" + simple
	}
	t := &rawType{name: name, kind: kind}

	switch kind {
	case typeset.KindEnum:
		t.super = "Enum"
	case typeset.KindRecord:
		t.super = "Record"
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "superclass":
			if c.NamedChildCount() > 0 {
				t.super = typeText(c.NamedChild(0), src)
			}
		case "super_interfaces", "extends_interfaces":
			t.interfaces = append(t.interfaces, typeList(c, src)...)
		}
	}

	if kind == typeset.KindRecord {
		if params := n.ChildByFieldName("parameters"); params != nil {
			for _, p := range formalParams(params, src) {
				t.fields = append(t.fields, p.typ)
				t.methods = append(t.methods, rawMethod{name: p.name})
			}
		}
		t.methods = append(t.methods,
			rawMethod{name: "toString"},
			rawMethod{name: "hashCode"},
			rawMethod{name: "equals", params: []string{"Object"}},
		)
	}
	if kind == typeset.KindEnum {
		t.methods = append(t.methods,
			rawMethod{name: "values"},
			rawMethod{name: "valueOf", params: []string{"String"}},
		)
	}

	nested := []*rawType{}
	if body := n.ChildByFieldName("body"); body != nil {
		nested = t.collectMembers(body, src, prefix)
	}
	return append([]*rawType{t}, nested...)
}

func (t *rawType) collectMembers(body *sitter.Node, src []byte, prefix string) []*rawType {
	var nested []*rawType
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case "field_declaration", "constant_declaration":
			typ := typeText(m.ChildByFieldName("type"), src)
			for j := 0; j < int(m.NamedChildCount()); j++ {
				if m.NamedChild(j).Type() == "variable_declarator" {
					t.fields = append(t.fields, typ)
				}
			}
		case "method_declaration":
			rm := rawMethod{}
			if nn := m.ChildByFieldName("name"); nn != nil {
				rm.name = nn.Content(src)
			}
			if params := m.ChildByFieldName("parameters"); params != nil {
				for _, p := range formalParams(params, src) {
					rm.params = append(rm.params, p.typ)
				}
			}
			t.methods = append(t.methods, rm)
		case "enum_body_declarations":
			nested = append(nested, t.collectMembers(m, src, prefix)...)
		default:
			nested = append(nested, collectTypes(m, src, prefix, t.name)...)
		}
	}
	return nested
}

type param struct {
	name string
	typ  string
}

func formalParams(n *sitter.Node, src []byte) []param {
	var out []param
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			out = append(out, param{name: fieldContent(p, "name", src), typ: typeText(p.ChildByFieldName("type"), src)})
		case "spread_parameter":
			var typ string
			for j := 0; j < int(p.NamedChildCount()); j++ {
				if c := p.NamedChild(j); c.Type() != "variable_declarator" && c.Type() != "modifiers" {
					typ = typeText(c, src)
					break
				}
			}
			out = append(out, param{typ: typ + "[]"})
		}
	}
	return out
}

func fieldContent(n *sitter.Node, field string, src []byte) string {
	if c := n.ChildByFieldName(field); c != nil {
		return c.Content(src)
	}
	return ""
}

func typeList(n *sitter.Node, src []byte) []string {
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_list" {
			out = append(out, typeList(c, src)...)
			continue
		}
		out = append(out, typeText(c, src))
	}
	return out
}

// typeText returns the erased source spelling of a type node: generics are
// dropped and array dimensions are kept as [] suffixes.
func typeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "generic_type":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() != "type_arguments" {
				return typeText(c, src)
			}
		}
	case "array_type":
		elem := typeText(n.ChildByFieldName("element"), src)
		dims := strings.Count(fieldContent(n, "dimensions", src), "[")
		return elem + strings.Repeat("[]", dims)
	case "annotated_type":
		if count := int(n.NamedChildCount()); count > 0 {
			return typeText(n.NamedChild(count-1), src)
		}
	case "scoped_type_identifier":
		var parts []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() != "annotation" && c.Type() != "marker_annotation" {
				parts = append(parts, typeText(c, src))
			}
		}
		return strings.Join(parts, ".")
	}
	return n.Content(src)
}

var sourcePrimitives = map[string]byte{
	"byte": 'B', "char": 'C', "double": 'D', "float": 'F',
	"int": 'I', "long": 'J', "short": 'S', "boolean": 'Z',
}

// resolve maps a source spelling to the binary name reflection would report.
func (u *compilationUnit) resolve(spelling string, local map[string]string) string {
	dims := 0
	for strings.HasSuffix(spelling, "[]") {
		spelling = strings.TrimSuffix(spelling, "[]")
		dims++
	}
	spelling = strings.TrimSpace(spelling)

	if dims > 0 {
		if code, ok := sourcePrimitives[spelling]; ok {
			return strings.Repeat("[", dims) + string(code)
		}
		return strings.Repeat("[", dims) + "L" + u.resolve(spelling, local) + ";"
	}
	if _, ok := sourcePrimitives[spelling]; ok || spelling == "void" {
		return spelling
	}
	head, tail, scoped := strings.Cut(spelling, ".")
	if imported, ok := u.imports[head]; ok {
		if scoped {
			return imported + "$" + strings.ReplaceAll(tail, ".", "$")
		}
		return imported
	}
	if name, ok := local[spelling]; ok {
		return name
	}
	if !scoped && javaLang[spelling] {
		return "java.lang." + spelling
	}
	return spelling
}

func (t *rawType) descriptor(u *compilationUnit, local map[string]string) *typeset.TypeDescriptor {
	d := &typeset.TypeDescriptor{
		Name:       t.name,
		SimpleName: SimpleName(t.name),
		Kind:       t.kind,
	}
	if t.super != "" {
		d.Supertype = u.resolve(t.super, local)
	}
	for _, iface := range t.interfaces {
		d.Interfaces = append(d.Interfaces, u.resolve(iface, local))
	}
	for _, f := range t.fields {
		d.Fields = append(d.Fields, u.resolve(f, local))
	}
	for _, m := range t.methods {
		sig := typeset.MethodSignature{Name: m.name}
		for _, p := range m.params {
			sig.Params = append(sig.Params, u.resolve(p, local))
		}
		d.Methods = append(d.Methods, sig)
	}
	return d
}
