//go:build cgo

package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	daerrors "da/internal/errors"
	"da/internal/typeset"
)

func writeSource(t *testing.T, dir, file, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(src), 0o644))
}

func TestSourceLoader_Load(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shapes")
	writeSource(t, dir, "Shape.java", `package com.example.shapes;

public abstract class Shape implements Comparable<Shape> {
    public abstract double area();
}
`)
	writeSource(t, dir, "Circle.java", `package com.example.shapes;

import java.util.List;

public class Circle extends Shape {
    private double radius;
    private List<Point> trail;
    private Point[] corners, extra;

    public Circle(double radius) { this.radius = radius; }

    public double area() { return Math.PI * radius * radius; }

    public void moveTo(Point p, int[][] grid) {}

    public static class Point {
        int x;
    }
}
`)
	writeSource(t, dir, "Color.java", `package com.example.shapes;

public enum Color {
    RED, GREEN;

    public Color next() { return this; }
}
`)
	writeSource(t, dir, "Pair.java", `package com.example.shapes;

public record Pair(Shape left, Shape right) {}
`)

	l, err := NewSourceLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	set, err := l.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "shapes", set.Package())
	require.Equal(t, 5, set.Len())

	circle, ok := set.Lookup("com.example.shapes.Circle")
	require.True(t, ok)
	assert.Equal(t, typeset.KindClass, circle.Kind)
	assert.Equal(t, "com.example.shapes.Shape", circle.Supertype)
	assert.Equal(t, []string{
		"double",
		"java.util.List",
		"[Lcom.example.shapes.Circle$Point;",
		"[Lcom.example.shapes.Circle$Point;",
	}, circle.Fields)
	assert.Equal(t, []typeset.MethodSignature{
		{Name: "area"},
		{Name: "moveTo", Params: []string{"com.example.shapes.Circle$Point", "[[I"}},
	}, circle.Methods)

	point, ok := set.Lookup("com.example.shapes.Circle$Point")
	require.True(t, ok)
	assert.Equal(t, "Point", point.SimpleName)

	shape, _ := set.Lookup("com.example.shapes.Shape")
	assert.Equal(t, []string{"java.lang.Comparable"}, shape.Interfaces)
	assert.False(t, shape.HasSupertype())

	color, _ := set.Lookup("com.example.shapes.Color")
	assert.Equal(t, typeset.KindEnum, color.Kind)
	assert.Equal(t, "java.lang.Enum", color.Supertype)
	assert.Equal(t, 3, color.DeclaredMethodCount())

	pair, _ := set.Lookup("com.example.shapes.Pair")
	assert.Equal(t, typeset.KindRecord, pair.Kind)
	assert.Equal(t, []string{"com.example.shapes.Shape", "com.example.shapes.Shape"}, pair.Fields)
	assert.Equal(t, 5, pair.DeclaredMethodCount())
}

func TestSourceLoader_Errors(t *testing.T) {
	tmp := t.TempDir()
	wrong := filepath.Join(tmp, "shapes")
	writeSource(t, wrong, "A.java", "package com.example.other;\nclass A {}\n")
	broken := filepath.Join(tmp, "broken")
	writeSource(t, broken, "B.java", "package broken;\nclass B { int }\n")

	l, err := NewSourceLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Load(context.Background(), wrong)
	assert.True(t, daerrors.IsCode(err, daerrors.ResolutionError), "got %v", err)
	_, err = l.Load(context.Background(), broken)
	assert.True(t, daerrors.IsCode(err, daerrors.ResolutionError), "got %v", err)
	_, err = l.Load(context.Background(), filepath.Join(tmp, "absent"))
	assert.True(t, daerrors.IsCode(err, daerrors.IOError), "got %v", err)
}
