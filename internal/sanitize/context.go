package sanitize

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/flarebyte/ampscribe/internal/allowlist"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Args are the knobs every stage sees.
type Args struct {
	ContentMaxWidth   int  `json:"content_max_width,omitempty"`
	AllowDirtyStyles  bool `json:"allow_dirty_styles,omitempty"`
	AllowDirtyScripts bool `json:"allow_dirty_scripts,omitempty"`
	// Debug leaves unsanitized constructs in the tree.
	Debug bool `json:"debug,omitempty"`
}

// DecisionFunc returns the sanitized decision for an error raised on node.
// It may attach sources to e before the error is recorded.
type DecisionFunc func(e *taxonomy.Error, node *html.Node) bool

// DefaultDecision consults no policy store, so every error is blocking.
func DefaultDecision(e *taxonomy.Error, _ *html.Node) bool {
	return (&taxonomy.Decider{}).Decide(*e)
}

// Context is the per-run state shared by stages.
type Context struct {
	Args   Args
	Table  *allowlist.Table
	Logger *zap.Logger

	decide  DecisionFunc
	scripts AssetMap
	styles  AssetMap
	results []taxonomy.Result
}

func newContext(args Args, table *allowlist.Table, decide DecisionFunc, logger *zap.Logger) *Context {
	if table == nil {
		table = allowlist.Default()
	}
	if decide == nil {
		decide = DefaultDecision
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Args:    args,
		Table:   table,
		Logger:  logger,
		decide:  decide,
		scripts: AssetMap{},
		styles:  AssetMap{},
	}
}

// Report records e and returns whether the stage must remove the construct.
// It must be called while node is still attached so its sources can be
// located.
func (c *Context) Report(e taxonomy.Error, node *html.Node) bool {
	if e.Code == "" {
		e.Code = taxonomy.CodeUnknown
	}
	sanitized := c.decide(&e, node)
	c.results = append(c.results, taxonomy.Result{Error: e, Sanitized: sanitized})
	return sanitized || !c.Args.Debug
}

// AddScript requires a component script. An empty url means the handle is
// known to the host.
func (c *Context) AddScript(handle, url string) { c.scripts.add(handle, url) }

// AddStyle requires a stylesheet.
func (c *Context) AddStyle(handle, url string) { c.styles.add(handle, url) }

// Results returns what has been reported so far.
func (c *Context) Results() []taxonomy.Result {
	return append([]taxonomy.Result(nil), c.results...)
}
