// Package tracer brackets renderer output with provenance markers so that
// markup removed later can be attributed to the code that produced it.
//
// A Tracer belongs to a single request and is not safe for concurrent use.
package tracer

import (
	"context"
	"io"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/source"
)

// Renderer produces markup by writing to w and may also return a value.
type Renderer func(ctx context.Context, w io.Writer, args []any) (any, error)

// AssetQueue is the host's registry of enqueued scripts and styles.
type AssetQueue interface {
	ScriptQueue() []string
	StyleQueue() []string
	// ScriptDeps reports the registered src and dependencies of a script
	// handle. An empty src marks a placeholder that only groups its deps.
	ScriptDeps(handle string) (src string, deps []string, ok bool)
}

// InlineScripts is implemented by queues that also keep the inline code
// attached to script handles.
type InlineScripts interface {
	ScriptInline(handle string) []string
}

// Callback is one renderer registered on a hook.
type Callback struct {
	Func Renderer
	// Callable identifies the code for source resolution. Defaults to Func.
	Callable any
	// AcceptedArgs caps the arguments passed through; zero passes all.
	AcceptedArgs int
	// ByReference marks callbacks that mutate their arguments in place;
	// they are recorded but never wrapped.
	ByReference bool
}

// Hook is a named extension point and its callbacks in priority order.
type Hook struct {
	Name      string
	Callbacks []Callback
}

// Post is the content item being rendered, when there is one.
type Post struct {
	ID   int
	Type string
}

// Tracer instruments renderers for one request.
type Tracer struct {
	stack    Stack
	out      *Output
	assets   AssetQueue
	registry *source.Registry
	logger   *zap.Logger

	scriptSources map[string][]source.Source
	styleSources  map[string][]source.Source
	hookSources   map[string][]source.Source
	blockIndex    int
}

// New creates a tracer writing nested captures through out. assets may be
// nil when the host has no asset registry.
func New(out *Output, assets AssetQueue, registry *source.Registry, logger *zap.Logger) *Tracer {
	if out == nil {
		out = NewOutput()
	}
	if registry == nil {
		registry = source.NewRegistry(source.Roots{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		out:           out,
		assets:        assets,
		registry:      registry,
		logger:        logger.Named("tracer"),
		scriptSources: map[string][]source.Source{},
		styleSources:  map[string][]source.Source{},
		hookSources:   map[string][]source.Source{},
	}
}

// Output returns the capture the tracer brackets into.
func (t *Tracer) Output() *Output { return t.out }

// Depth is the number of wrapped renderers currently running.
func (t *Tracer) Depth() int { return t.stack.Len() }

// Wrap returns a renderer with the same behavior as r that records src as the
// current source while r runs. When a nested capture can be opened, markup
// written by r is bracketed with markers for src.
func (t *Tracer) Wrap(r Renderer, src source.Source) Renderer {
	return func(ctx context.Context, w io.Writer, args []any) (any, error) {
		scripts, styles := t.queues()

		t.stack.Push(src)
		dest := w
		started := t.out.Start(w, t.bracketTop)
		if started {
			dest = t.out
		} else {
			t.logger.Debug("nested capture refused", zap.String("function", src.Function), zap.Bool("finalizing", t.out.Finalizing()))
		}
		result, err := r(ctx, dest, args)
		if started {
			if endErr := t.out.End(); endErr != nil && err == nil {
				err = endErr
			}
		}
		t.stack.Pop()

		t.recordAssets(src, scripts, styles)
		return result, err
	}
}

func (t *Tracer) bracketTop(captured string) string {
	top, ok := t.stack.Top()
	if !ok || !source.LooksLikeMarkup(captured) {
		return captured
	}
	return source.Bracket(top, captured)
}

// WrapHook resolves and wraps every callback of h, returning the renderers
// to invoke in place of the originals. Callbacks that cannot be resolved or
// take arguments by reference are returned unchanged.
func (t *Tracer) WrapHook(h Hook) []Renderer {
	out := make([]Renderer, len(h.Callbacks))
	t.hookSources[h.Name] = nil
	for i, cb := range h.Callbacks {
		out[i] = cb.Func
		if h.Name == "shutdown" {
			continue
		}
		src, ok := t.resolve(cb)
		if !ok {
			continue
		}
		t.hookSources[h.Name] = append(t.hookSources[h.Name], src)
		if cb.ByReference {
			continue
		}
		src.Hook = h.Name
		out[i] = t.Wrap(limitArgs(cb.Func, cb.AcceptedArgs), src)
	}
	return out
}

// WrapWidget wraps a widget callback; its source carries the widget id.
func (t *Tracer) WrapWidget(id string, cb Callback) Renderer {
	src, ok := t.resolve(cb)
	if !ok {
		return cb.Func
	}
	src.WidgetID = id
	return t.Wrap(limitArgs(cb.Func, 2), src)
}

// HookSources lists the resolved sources registered on a hook.
func (t *Tracer) HookSources(hook string) []source.Source {
	return append([]source.Source(nil), t.hookSources[hook]...)
}

// ScriptSources maps each script handle to the sources that enqueued it, in
// enqueue order.
func (t *Tracer) ScriptSources() map[string][]source.Source { return copySources(t.scriptSources) }

// StyleSources maps each style handle to the sources that enqueued it.
func (t *Tracer) StyleSources() map[string][]source.Source { return copySources(t.styleSources) }

// ScriptSourcesFor returns the sources that enqueued a script element. An
// external script matches every handle whose registered src, scheme
// dropped, occurs in src; an inline script (empty src) matches handles whose
// inline code occurs in text.
func (t *Tracer) ScriptSourcesFor(src, text string) []source.Source {
	if t.assets == nil {
		return nil
	}
	handles := make([]string, 0, len(t.scriptSources))
	for h := range t.scriptSources {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	var out []source.Source
	for _, h := range handles {
		if t.scriptMatches(h, src, text) {
			out = append(out, t.scriptSources[h]...)
		}
	}
	return out
}

func (t *Tracer) scriptMatches(handle, src, text string) bool {
	if src != "" {
		registered, _, ok := t.assets.ScriptDeps(handle)
		return ok && registered != "" && strings.Contains(withoutScheme(src), withoutScheme(registered))
	}
	inline, ok := t.assets.(InlineScripts)
	if !ok {
		return false
	}
	if text = strings.TrimSpace(text); text == "" {
		return false
	}
	for _, code := range inline.ScriptInline(handle) {
		if code = strings.TrimSpace(code); code != "" && strings.Contains(text, code) {
			return true
		}
	}
	return false
}

func withoutScheme(u string) string {
	for _, scheme := range []string{"https:", "http:"} {
		if rest, ok := strings.CutPrefix(u, scheme); ok {
			return rest
		}
	}
	return u
}

func (t *Tracer) resolve(cb Callback) (source.Source, bool) {
	callable := cb.Callable
	if callable == nil {
		if cb.Func == nil {
			return source.Source{}, false
		}
		callable = cb.Func
	}
	return t.registry.Resolve(callable)
}

func limitArgs(r Renderer, accepted int) Renderer {
	if r == nil {
		return func(context.Context, io.Writer, []any) (any, error) { return nil, nil }
	}
	return func(ctx context.Context, w io.Writer, args []any) (any, error) {
		if accepted > 0 && len(args) > accepted {
			args = args[:accepted]
		}
		return r(ctx, w, args)
	}
}

func (t *Tracer) queues() (scripts, styles []string) {
	if t.assets == nil {
		return nil, nil
	}
	return append([]string(nil), t.assets.ScriptQueue()...), append([]string(nil), t.assets.StyleQueue()...)
}

func (t *Tracer) recordAssets(src source.Source, beforeScripts, beforeStyles []string) {
	if t.assets == nil {
		return
	}
	for _, h := range added(beforeStyles, t.assets.StyleQueue()) {
		s := src
		s.Handle = h
		t.styleSources[h] = append(t.styleSources[h], s)
	}
	for _, queued := range added(beforeScripts, t.assets.ScriptQueue()) {
		handles := []string{queued}
		if srcURL, deps, ok := t.assets.ScriptDeps(queued); ok && srcURL == "" {
			handles = append(handles, deps...)
		}
		for _, h := range handles {
			s := src
			s.Handle = h
			t.scriptSources[h] = append(t.scriptSources[h], s)
		}
	}
}

// added returns the entries of after that are not in before, in order.
func added(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, h := range before {
		seen[h] = struct{}{}
	}
	var out []string
	for _, h := range after {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func copySources(m map[string][]source.Source) map[string][]source.Source {
	out := make(map[string][]source.Source, len(m))
	for k, v := range m {
		out[k] = append([]source.Source(nil), v...)
	}
	return out
}
