package loader

import (
	"fmt"
	"strings"
)

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// BinaryName converts an internal class name (`java/util/List`) to its binary
// name (`java.util.List`).
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// SimpleName derives the display name of a binary class name the way the JVM
// reports it: the text after the package and after the last `$`, without the
// numeric prefix of local classes. Anonymous classes have an empty simple name.
func SimpleName(binary string) string {
	name := binary
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '$'); i >= 0 {
		name = strings.TrimLeft(name[i+1:], "0123456789")
	}
	return name
}

// PackageOf returns the package part of a binary class name.
func PackageOf(binary string) string {
	if i := strings.LastIndexByte(binary, '.'); i >= 0 {
		return binary[:i]
	}
	return ""
}

// FieldType converts a field descriptor to the type name reflection reports:
// `I` → `int`, `Lp/A;` → `p.A`, `[Lp/A;` → `[Lp.A;`, `[[I` → `[[I`.
func FieldType(desc string) (string, error) {
	name, rest, err := parseType(desc)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return "", fmt.Errorf("trailing data in field descriptor %q", desc)
	}
	if name == "void" {
		return "", fmt.Errorf("void field descriptor %q", desc)
	}
	return name, nil
}

// MethodParams returns the parameter type names of a method descriptor.
func MethodParams(desc string) ([]string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, fmt.Errorf("method descriptor %q does not start with '('", desc)
	}
	rest := desc[1:]
	var params []string
	for {
		if rest == "" {
			return nil, fmt.Errorf("unterminated method descriptor %q", desc)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		name, next, err := parseType(rest)
		if err != nil {
			return nil, fmt.Errorf("method descriptor %q: %w", desc, err)
		}
		if name == "void" {
			return nil, fmt.Errorf("void parameter in method descriptor %q", desc)
		}
		params = append(params, name)
		rest = next
	}

	if _, tail, err := parseType(rest); err != nil || tail != "" {
		return nil, fmt.Errorf("bad return type in method descriptor %q", desc)
	}
	return params, nil
}

func parseType(s string) (name, rest string, err error) {
	if s == "" {
		return "", "", fmt.Errorf("empty type descriptor")
	}
	switch c := s[0]; c {
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return "", "", fmt.Errorf("unterminated class descriptor %q", s)
		}
		return BinaryName(s[1:end]), s[end+1:], nil
	case '[':
		dims := 0
		for dims < len(s) && s[dims] == '[' {
			dims++
		}
		if dims == len(s) {
			return "", "", fmt.Errorf("array descriptor %q without component", s)
		}
		prefix := s[:dims]
		comp := s[dims:]
		if comp[0] == 'L' {
			end := strings.IndexByte(comp, ';')
			if end < 2 {
				return "", "", fmt.Errorf("unterminated class descriptor %q", comp)
			}
			return prefix + "L" + BinaryName(comp[1:end]) + ";", comp[end+1:], nil
		}
		if _, ok := primitiveNames[comp[0]]; !ok || comp[0] == 'V' {
			return "", "", fmt.Errorf("invalid array component %q", comp[:1])
		}
		return prefix + comp[:1], comp[1:], nil
	default:
		if p, ok := primitiveNames[c]; ok {
			return p, s[1:], nil
		}
		return "", "", fmt.Errorf("invalid type descriptor %q", s)
	}
}
