package stage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
)

const discoverDocumentsStage = "discover-documents"

var defaultExtensions = []string{".html", ".htm"}

func determineRoot(in Envelope) string {
	if in.Meta != nil && in.Meta.Discovery != nil && in.Meta.Discovery.Root != "" {
		return in.Meta.Discovery.Root
	}
	return "."
}

func extensionSet(meta *Meta) map[string]struct{} {
	exts := defaultExtensions
	if meta != nil && meta.Discovery != nil && len(meta.Discovery.Extensions) > 0 {
		exts = meta.Discovery.Extensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// discover-documents: find markup files under root (gitignore respected) with
// a configured extension.
func discoverDocumentsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	absRoot, err := filepath.Abs(determineRoot(in))
	if err != nil {
		return Envelope{}, err
	}
	mode, _ := errorMode(in.Meta)
	w := &documentWalker{
		root:        absRoot,
		exts:        extensionSet(in.Meta),
		useIgnore:   in.Meta == nil || in.Meta.Discovery == nil || !in.Meta.Discovery.NoGitignore,
		keepGoing:   mode == modeKeepGoing,
		dirPatterns: map[string][]gitignore.Pattern{},
	}
	if err := w.walk(ctx); err != nil {
		return Envelope{}, err
	}
	deps.logger().Debug("documents discovered", zap.String("root", absRoot), zap.Int("documents", len(w.locators)), zap.Int("errors", len(w.errs)))

	out := in
	out.Records = make([]Record, 0, len(w.locators))
	for _, l := range w.locators {
		out.Records = append(out.Records, Record{Locator: l})
	}
	appendErrors(&out, w.errs)
	return out, nil
}

// documentWalker collects locators under root. Each directory inherits the
// .gitignore patterns of its parents plus its own. Symlinked directories are
// not followed.
type documentWalker struct {
	root      string
	exts      map[string]struct{}
	useIgnore bool
	keepGoing bool

	dirPatterns map[string][]gitignore.Pattern
	locators    []string
	errs        []Error
}

func (w *documentWalker) walk(ctx context.Context) error {
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		rel := w.locator(p)
		if err != nil {
			return w.fail(rel, err)
		}
		if d.IsDir() {
			if rel != "." && w.ignored(rel, true) {
				return filepath.SkipDir
			}
			w.loadPatterns(rel)
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(p)
			if err != nil {
				return w.fail(rel, err)
			}
			if info.IsDir() {
				return nil
			}
		}
		if _, ok := w.exts[strings.ToLower(path.Ext(rel))]; !ok || w.ignored(rel, false) {
			return nil
		}
		w.locators = append(w.locators, rel)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(w.locators)
	return nil
}

// fail records err against rel in keep-going mode and aborts the walk
// otherwise.
func (w *documentWalker) fail(rel string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || !w.keepGoing {
		return fmt.Errorf("%s: %s: %v", discoverDocumentsStage, rel, err)
	}
	w.errs = append(w.errs, Error{Stage: discoverDocumentsStage, Locator: rel, Message: err.Error()})
	return nil
}

func (w *documentWalker) locator(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

func (w *documentWalker) ignored(rel string, isDir bool) bool {
	if !w.useIgnore {
		return false
	}
	patterns := w.dirPatterns[path.Dir(rel)]
	if len(patterns) == 0 {
		return false
	}
	return gitignore.NewMatcher(patterns).Match(strings.Split(rel, "/"), isDir)
}

func (w *documentWalker) loadPatterns(rel string) {
	if !w.useIgnore {
		return
	}
	var inherited []gitignore.Pattern
	if rel != "." {
		inherited = w.dirPatterns[path.Dir(rel)]
	}
	patterns := append([]gitignore.Pattern(nil), inherited...)
	data, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(rel), ".gitignore"))
	if err == nil {
		var domain []string
		if rel != "." {
			domain = strings.Split(rel, "/")
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, domain))
		}
	}
	w.dirPatterns[rel] = patterns
}

func init() { Register(discoverDocumentsStage, discoverDocumentsRunner) }
