package loader

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zip"

	"da/internal/typeset"
)

// DefaultCacheSize bounds the number of resolved class headers kept in memory.
const DefaultCacheSize = 4096

type resolved struct {
	super string
	found bool
}

// Resolver looks up classes outside the analyzed directory on a classpath of
// directories, jar archives and JDK .jmod archives, falling back to a table of
// common platform classes. It is used to follow supertype chains past the
// analyzed package.
type Resolver struct {
	entries []string
	cache   *lru.Cache[string, resolved]
	logger  *slog.Logger

	mu   sync.Mutex
	jars map[string]*jarIndex
}

type jarIndex struct {
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

// NewResolver creates a resolver over the given classpath entries. Entries that
// end in .jar or .jmod are read as archives, everything else as class
// directories.
func NewResolver(entries []string, cacheSize int, logger *slog.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, resolved](cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clean := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			clean = append(clean, e)
		}
	}
	return &Resolver{
		entries: clean,
		cache:   cache,
		logger:  logger,
		jars:    make(map[string]*jarIndex),
	}, nil
}

// Supertype returns the supertype of the named class. found is false when no
// classpath entry defines the class. The root type has no supertype and is
// always found.
func (r *Resolver) Supertype(name string) (super string, found bool, err error) {
	if name == typeset.RootType {
		return "", true, nil
	}
	if hit, ok := r.cache.Get(name); ok {
		return hit.super, hit.found, nil
	}

	data, err := r.read(strings.ReplaceAll(name, ".", "/") + ".class")
	if err != nil {
		return "", false, err
	}
	if data == nil {
		hit := resolved{}
		if super, ok := jdkSupertypes[name]; ok {
			hit = resolved{super: super, found: true}
		}
		r.cache.Add(name, hit)
		return hit.super, hit.found, nil
	}

	cf, err := ParseClassFile(data)
	if err != nil {
		return "", false, fmt.Errorf("classpath class %s: %w", name, err)
	}
	super = cf.SuperName
	if super == typeset.RootType {
		super = ""
	}
	r.cache.Add(name, resolved{super: super, found: true})
	r.logger.Debug("Resolved classpath type", "type", name, "supertype", super)
	return super, true, nil
}

func (r *Resolver) read(rel string) ([]byte, error) {
	for _, entry := range r.entries {
		if isArchive(entry) {
			data, err := r.readJar(entry, rel)
			if err != nil {
				return nil, err
			}
			if data != nil {
				return data, nil
			}
			continue
		}

		data, err := os.ReadFile(filepath.Join(entry, filepath.FromSlash(rel)))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, nil
}

func isArchive(entry string) bool {
	ext := filepath.Ext(entry)
	return strings.EqualFold(ext, ".jar") || strings.EqualFold(ext, ".jmod")
}

func (r *Resolver) readJar(path, rel string) ([]byte, error) {
	idx, err := r.openJar(path)
	if err != nil {
		return nil, err
	}
	f, ok := idx.files[rel]
	if !ok {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s in %s: %w", rel, path, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *Resolver) openJar(path string) (*jarIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.jars[path]; ok {
		return idx, nil
	}
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open jar %s: %w", path, err)
	}
	// A .jmod keeps its classes under classes/.
	prefix := ""
	if strings.EqualFold(filepath.Ext(path), ".jmod") {
		prefix = "classes/"
	}
	idx := &jarIndex{rc: rc, files: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".class") {
			idx.files[strings.TrimPrefix(f.Name, prefix)] = f
		}
	}
	r.jars[path] = idx
	r.logger.Debug("Indexed jar", "path", path, "classes", len(idx.files))
	return idx, nil
}

// Close releases the jar archives opened so far.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for path, idx := range r.jars {
		if err := idx.rc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(r.jars, path)
	}
	return firstErr
}
