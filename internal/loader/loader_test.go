package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	daerrors "da/internal/errors"
	"da/internal/typeset"
)

func writeShapes(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "shapes")
	writeClass(t, dir, "Shape.class", classSpec{
		name:    "com/example/shapes/Shape",
		super:   "java/lang/Object",
		access:  0x0421,
		methods: [][2]string{{"<init>", "()V"}, {"area", "()D"}},
	})
	writeClass(t, dir, "Circle.class", classSpec{
		name:    "com/example/shapes/Circle",
		super:   "com/example/shapes/Shape",
		fields:  [][2]string{{"radius", "D"}},
		methods: [][2]string{{"<init>", "(D)V"}, {"area", "()D"}, {"scale", "(Lcom/example/shapes/Shape;)V"}},
	})
	writeClass(t, dir, "Bag.class", classSpec{
		name:   "com/example/shapes/Bag",
		super:  "java/util/AbstractList",
		fields: [][2]string{{"items", "[Lcom/example/shapes/Circle;"}},
	})
	writeClass(t, dir, "module-info.class", classSpec{name: "module-info", access: 0x8000})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a class"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	return dir
}

func TestClassLoader_Load(t *testing.T) {
	t.Setenv("JAVA_HOME", "")
	dir := writeShapes(t)
	l, err := NewClassLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	set, err := l.Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "shapes", set.Package())
	require.Equal(t, 3, set.Len())

	var names []string
	for _, d := range set.Types() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"com.example.shapes.Bag", "com.example.shapes.Circle", "com.example.shapes.Shape"}, names)

	circle, ok := set.Lookup("com.example.shapes.Circle")
	require.True(t, ok)
	assert.Equal(t, "com.example.shapes.Shape", circle.Supertype)
	assert.Equal(t, 2, circle.DeclaredMethodCount())
	assert.Equal(t, []string{"double"}, circle.Fields)

	shape, _ := set.Lookup("com.example.shapes.Shape")
	assert.False(t, shape.HasSupertype())

	// The classpath is empty; the platform table knows AbstractList.
	super, known := set.SupertypeOf("java.util.AbstractList")
	assert.True(t, known)
	assert.Equal(t, "java.util.AbstractCollection", super)
	assert.Equal(t, 3, set.TotalDeclaredMethods())
}

func TestClassLoader_LoadErrors(t *testing.T) {
	l, err := NewClassLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	tmp := t.TempDir()
	file := filepath.Join(tmp, "Plain.class")
	require.NoError(t, os.WriteFile(file, []byte{0xCA, 0xFE}, 0o644))

	wrongPkg := filepath.Join(tmp, "shapes")
	writeClass(t, wrongPkg, "Other.class", classSpec{name: "com/example/other/Other", super: "java/lang/Object"})

	corrupt := filepath.Join(tmp, "broken")
	require.NoError(t, os.MkdirAll(corrupt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, "A.class"), []byte{0xCA, 0xFE, 0xBA, 0xBE, 0}, 0o644))

	tests := []struct {
		name string
		dir  string
		code daerrors.ErrorCode
	}{
		{"missing directory", filepath.Join(tmp, "absent"), daerrors.IOError},
		{"file instead of directory", file, daerrors.IOError},
		{"class from another package", wrongPkg, daerrors.ResolutionError},
		{"corrupt class file", corrupt, daerrors.ResolutionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.dir)
			require.Error(t, err)
			assert.True(t, daerrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestClassLoader_EmptyDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(dir, 0o755))

	l, err := NewClassLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	set, err := l.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Equal(t, "empty", set.Package())
}

func TestClassLoader_SingleSegmentPackage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "app")
	writeClass(t, dir, "app.class", classSpec{name: "app/Main", super: "java/lang/Object"})

	l, err := NewClassLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	set, err := l.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, set.Contains("app.Main"))
}

func TestClassLoader_Cancelled(t *testing.T) {
	dir := writeShapes(t)
	l, err := NewClassLoader(Options{}, nil)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeResolver map[string]string

func (f fakeResolver) Supertype(name string) (string, bool, error) {
	super, ok := f[name]
	return super, ok, nil
}

func TestResolveAncestry(t *testing.T) {
	descriptors := []*typeset.TypeDescriptor{
		{Name: "shapes.Shape"},
		{Name: "shapes.Circle", Supertype: "shapes.Shape"},
		{Name: "shapes.Bag", Supertype: "java.util.AbstractList"},
		{Name: "shapes.Set", Supertype: "java.util.AbstractCollection"},
	}
	logger := slog.New(slog.DiscardHandler)
	r := fakeResolver{
		"java.util.AbstractList":       "java.util.AbstractCollection",
		"java.util.AbstractCollection": "",
	}

	ancestry, err := resolveAncestry(descriptors, r, false, logger)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"java.util.AbstractList":       "java.util.AbstractCollection",
		"java.util.AbstractCollection": "",
	}, ancestry)

	// Strict mode fails on the first supertype the classpath lacks.
	_, err = resolveAncestry(descriptors, fakeResolver{}, true, logger)
	require.Error(t, err)
	assert.True(t, daerrors.IsCode(err, daerrors.ResolutionError))
}

func TestResolveAncestry_LenientStopsAtUnknown(t *testing.T) {
	descriptors := []*typeset.TypeDescriptor{
		{Name: "shapes.Bag", Supertype: "java.util.AbstractList"},
	}
	ancestry, err := resolveAncestry(descriptors, fakeResolver{}, false, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Empty(t, ancestry)
}
