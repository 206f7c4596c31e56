// Package loader turns a package directory into a TypeSet. The default loader
// reads compiled .class files; the source loader parses .java files.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	daerrors "da/internal/errors"
	"da/internal/typeset"
)

// ErrNoCGO is returned when Java source loading is unavailable due to missing CGO.
var ErrNoCGO = errors.New("java source loading requires CGO (tree-sitter)")

// Loader resolves the types of one package directory.
type Loader interface {
	Load(ctx context.Context, dir string) (*typeset.TypeSet, error)
}

// Options configures the loaders.
type Options struct {
	// Classpath lists directories and jars searched for supertypes that live
	// outside the analyzed package.
	Classpath []string
	// Strict turns an unresolvable supertype into a RESOLUTION_ERROR instead of
	// ending the chain there.
	Strict    bool
	CacheSize int
	// JavaHome locates the JDK whose jmods are searched after Classpath;
	// empty means $JAVA_HOME.
	JavaHome string
}

func (o Options) classpath() []string {
	entries := append([]string(nil), o.Classpath...)
	return append(entries, JDKModules(o.JavaHome)...)
}

// ClassLoader loads the *.class files of a directory.
type ClassLoader struct {
	opts     Options
	resolver *Resolver
	logger   *slog.Logger
}

// NewClassLoader creates a class-file loader.
func NewClassLoader(opts Options, logger *slog.Logger) (*ClassLoader, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolver, err := NewResolver(opts.classpath(), opts.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &ClassLoader{opts: opts, resolver: resolver, logger: logger}, nil
}

// Close releases classpath archives.
func (l *ClassLoader) Close() error {
	return l.resolver.Close()
}

// Load reads every class of dir. The package is the final path segment of dir;
// each class must be declared in a package ending with that segment.
func (l *ClassLoader) Load(ctx context.Context, dir string) (*typeset.TypeSet, error) {
	pkg, files, err := listPackage(dir, ".class")
	if err != nil {
		return nil, err
	}

	descriptors := make([]*typeset.TypeDescriptor, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := strings.TrimSuffix(filepath.Base(file), ".class")
		if base == "module-info" || base == "package-info" {
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			return nil, daerrors.New(daerrors.IOError, daerrors.StageLoad, "cannot read "+file, err)
		}
		cf, err := ParseClassFile(data)
		if err != nil {
			return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad, "cannot resolve "+file, err)
		}
		if cf.IsModuleInfo() {
			continue
		}
		if !inPackage(cf.Name, pkg) {
			return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad,
				fmt.Sprintf("class %s in %s is not part of package %q", cf.Name, file, pkg), nil)
		}
		d, err := cf.Descriptor()
		if err != nil {
			return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad, "cannot resolve "+cf.Name, err)
		}
		l.logger.Debug("Loaded class", "type", d.Name, "fields", len(d.Fields), "methods", d.DeclaredMethodCount())
		descriptors = append(descriptors, d)
	}

	ancestry, err := resolveAncestry(descriptors, l.resolver, l.opts.Strict, l.logger)
	if err != nil {
		return nil, err
	}
	return newTypeSet(pkg, descriptors, ancestry)
}

// listPackage validates dir and returns its package segment and the files with
// the given extension, sorted.
func listPackage(dir, ext string) (string, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", nil, daerrors.New(daerrors.IOError, daerrors.StageLoad, "cannot open "+dir, err)
	}
	if !info.IsDir() {
		return "", nil, daerrors.New(daerrors.IOError, daerrors.StageLoad, dir+" is not a directory", nil)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, daerrors.New(daerrors.IOError, daerrors.StageLoad, "cannot list "+dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return filepath.Base(filepath.Clean(abs)), files, nil
}

func inPackage(className, segment string) bool {
	pkg := PackageOf(className)
	return pkg == segment || strings.HasSuffix(pkg, "."+segment)
}

// supertypeResolver is the part of Resolver the ancestry walk needs.
type supertypeResolver interface {
	Supertype(name string) (string, bool, error)
}

// resolveAncestry follows the supertypes of the loaded descriptors that leave
// the package, recording name → supertype for every external ancestor found.
func resolveAncestry(descriptors []*typeset.TypeDescriptor, r supertypeResolver, strict bool, logger *slog.Logger) (map[string]string, error) {
	members := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		members[d.Name] = true
	}

	ancestry := make(map[string]string)
	for _, d := range descriptors {
		name := d.Supertype
		for name != "" && name != typeset.RootType && !members[name] {
			if _, done := ancestry[name]; done {
				break
			}
			super, found, err := r.Supertype(name)
			if err != nil {
				return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad,
					fmt.Sprintf("cannot resolve supertype %s of %s", name, d.Name), err)
			}
			if !found {
				if strict {
					return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad,
						fmt.Sprintf("supertype %s of %s not found on classpath", name, d.Name), nil)
				}
				logger.Debug("Supertype not on classpath, depth stops here", "type", d.Name, "supertype", name)
				break
			}
			ancestry[name] = super
			name = super
		}
	}
	return ancestry, nil
}

func newTypeSet(pkg string, descriptors []*typeset.TypeDescriptor, ancestry map[string]string) (*typeset.TypeSet, error) {
	set, err := typeset.New(pkg, descriptors, typeset.WithAncestry(ancestry))
	if err != nil {
		return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageLoad, "cannot build type set for "+pkg, err)
	}
	return set, nil
}
