package source

import (
	"path"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Roots is the filesystem layout supplied by the host. Directories are
// compared as slash-separated prefixes.
type Roots struct {
	PluginDir   string
	ThemeDir    string
	MUPluginDir string
	CoreDir     string
	// CoreSegments are the directories directly under CoreDir that count as
	// core code. Defaults to wp-admin and wp-includes.
	CoreSegments []string
}

// Identity is an explicit callable identity for hosts that cannot hand over
// a Go func value.
type Identity struct {
	File     string
	Function string
}

// Registry resolves callables to sources. Safe for concurrent use.
type Registry struct {
	roots Roots

	mu    sync.Mutex
	cache map[any]resolved
}

type resolved struct {
	src Source
	ok  bool
}

var defaultCoreSegments = []string{"wp-admin", "wp-includes"}

// NewRegistry creates a registry for the given layout.
func NewRegistry(roots Roots) *Registry {
	if len(roots.CoreSegments) == 0 {
		roots.CoreSegments = defaultCoreSegments
	}
	return &Registry{roots: roots, cache: map[any]resolved{}}
}

// Resolve returns the source for a Go func value, an Identity or an
// *Identity. It returns false for anything without a backing file.
func (r *Registry) Resolve(callable any) (Source, bool) {
	if r == nil || callable == nil {
		return Source{}, false
	}
	key, id, ok := identify(callable)
	if !ok {
		return Source{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit, found := r.cache[key]; found {
		return hit.src, hit.ok
	}
	src, ok := r.classify(id)
	r.cache[key] = resolved{src: src, ok: ok}
	return src, ok
}

func identify(callable any) (any, Identity, bool) {
	switch c := callable.(type) {
	case Identity:
		return c, c, true
	case *Identity:
		if c == nil {
			return nil, Identity{}, false
		}
		return *c, *c, true
	}
	v := reflect.ValueOf(callable)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, Identity{}, false
	}
	pc := v.Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return nil, Identity{}, false
	}
	file, _ := fn.FileLine(fn.Entry())
	return pc, Identity{File: file, Function: normalizeFuncName(fn.Name())}, true
}

// normalizeFuncName trims the method-value suffix the compiler appends.
func normalizeFuncName(name string) string {
	return strings.TrimSuffix(name, "-fm")
}

func (r *Registry) classify(id Identity) (Source, bool) {
	if id.File == "" {
		return Source{}, false
	}
	file := normalizePath(id.File)
	src := Source{Kind: KindUnknown, Function: id.Function}
	switch {
	case r.matchRoot(file, r.roots.PluginDir, &src, KindPlugin):
	case r.matchRoot(file, r.roots.ThemeDir, &src, KindTheme):
	case r.matchRoot(file, r.roots.MUPluginDir, &src, KindMUPlugin):
	default:
		r.matchCore(file, &src)
	}
	return src, true
}

func (r *Registry) matchRoot(file, root string, src *Source, kind Kind) bool {
	seg, ok := firstSegmentUnder(file, root)
	if !ok {
		return false
	}
	src.Kind = kind
	src.Name = seg
	return true
}

func (r *Registry) matchCore(file string, src *Source) {
	seg, ok := firstSegmentUnder(file, r.roots.CoreDir)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(file, normalizePath(r.roots.CoreDir)+"/"+seg)
	if !strings.HasPrefix(rest, "/") {
		return
	}
	for _, s := range r.roots.CoreSegments {
		if s == seg {
			src.Kind = KindCore
			src.Name = seg
			return
		}
	}
}

// firstSegmentUnder returns the path segment immediately below root.
func firstSegmentUnder(file, root string) (string, bool) {
	if root == "" {
		return "", false
	}
	prefix := normalizePath(root) + "/"
	if !strings.HasPrefix(file, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(file, prefix)
	seg, _, _ := strings.Cut(rest, "/")
	if seg == "" {
		return "", false
	}
	return seg, true
}

func normalizePath(p string) string {
	return strings.TrimSuffix(path.Clean(filepath.ToSlash(p)), "/")
}
