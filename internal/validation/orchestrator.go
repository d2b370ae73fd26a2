// Package validation drives one request-scoped run: optional source tracing,
// the sanitizer pipeline, finalization of the error summary and the
// serve/redirect verdict.
package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/flarebyte/ampscribe/internal/sanitize"
	"github.com/flarebyte/ampscribe/internal/source"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
	"github.com/flarebyte/ampscribe/internal/tracer"
)

// Deps are the collaborators shared across runs.
type Deps struct {
	Pipeline sanitize.Pipeline
	Store    taxonomy.PolicyStore
	Override taxonomy.Override
	Registry *source.Registry
	Logger   *zap.Logger
}

// Response is the outcome of a run.
type Response struct {
	RunID    string            `json:"run_id"`
	Body     string            `json:"body"`
	Assets   sanitize.Assets   `json:"assets"`
	Results  []taxonomy.Result `json:"errors"`
	Blocking bool              `json:"blocking"`
	Degraded bool              `json:"degraded,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// Orchestrator is one validation run. It is not safe for concurrent use;
// build one per request.
type Orchestrator struct {
	opts   Options
	deps   Deps
	state  State
	runID  string
	tracer *tracer.Tracer
	logger *zap.Logger
}

// New creates an idle run.
func New(opts Options, deps Deps) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = ModeCanonical
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Orchestrator{
		opts:   opts,
		deps:   deps,
		runID:  id,
		logger: logger.Named("validation").With(zap.String("run_id", id)),
	}
}

func (o *Orchestrator) State() State           { return o.state }
func (o *Orchestrator) RunID() string          { return o.runID }
func (o *Orchestrator) Options() Options       { return o.opts }
func (o *Orchestrator) Tracer() *tracer.Tracer { return o.tracer }

// StartTracing moves Idle → Tracing. A tracer is created only when sources
// are located; out and assets may be nil.
func (o *Orchestrator) StartTracing(out *tracer.Output, assets tracer.AssetQueue) error {
	if o.state != Idle {
		return transitionError(o.state, Tracing)
	}
	if o.opts.LocateSources {
		o.tracer = tracer.New(out, assets, o.deps.Registry, o.logger)
	}
	o.state = Tracing
	o.logger.Debug("tracing started", zap.Bool("locate_sources", o.opts.LocateSources))
	return nil
}

// Process sanitizes raw and finalizes the run. Input that is not markup is
// returned unchanged.
func (o *Orchestrator) Process(raw string) (Response, error) {
	switch o.state {
	case Idle:
		o.state = Tracing
	case Tracing:
	default:
		return Response{}, transitionError(o.state, Sanitizing)
	}
	o.state = Sanitizing
	resp := Response{RunID: o.runID}
	if !isMarkup(raw) {
		o.state = Finalized
		resp.Body = raw
		return resp, nil
	}

	doc, err := sanitize.Parse(raw)
	if err != nil {
		return Response{}, fmt.Errorf("parse document: %w", err)
	}
	if h := doc.HTML(); h != nil {
		if !hasAMPAttr(h) {
			sanitize.SetAttr(h, "amp", "")
		}
		moveComponentScripts(doc)
	}

	p := o.deps.Pipeline
	p.Args.Debug = o.opts.Debug
	p.Decide = o.decision()
	if p.Logger == nil {
		p.Logger = o.logger
	}
	res, err := p.SanitizeDocument(doc)
	if err != nil {
		return Response{}, err
	}
	ensureRequiredMarkup(doc, o.canonicalURL())

	if o.opts.Validate {
		Finalize(doc, res.Results, o.opts.PreserveSourceComments || o.opts.Debug)
	} else {
		source.StripMarkers(doc.Root)
	}
	injectScripts(doc, res.Assets)

	resp.Assets = res.Assets
	resp.Results = res.Results
	resp.Blocking = taxonomy.IsBlocking(res.Results)
	if resp.Blocking && !o.opts.Validate {
		if err := o.verdict(doc, res.Results, &resp); err != nil {
			return Response{}, err
		}
	}
	body, err := doc.Render()
	if err != nil {
		return Response{}, fmt.Errorf("render document: %w", err)
	}
	resp.Body = body
	o.state = Finalized
	o.logger.Info("validation run finished",
		zap.Int("errors", len(res.Results)),
		zap.Bool("blocking", resp.Blocking),
		zap.Bool("degraded", resp.Degraded),
		zap.String("redirect", resp.Redirect))
	return resp, nil
}

func (o *Orchestrator) verdict(doc *sanitize.Document, results []taxonomy.Result, resp *Response) error {
	switch o.opts.Mode {
	case ModePaired:
		target, err := RedirectURL(o.opts.CurrentURL, taxonomy.BlockingCount(results), o.opts.CanReview)
		if err != nil {
			return fmt.Errorf("redirect url: %w", err)
		}
		resp.Redirect = target
	default:
		if h := doc.HTML(); h != nil {
			sanitize.RemoveAttr(h, "amp")
			sanitize.RemoveAttr(h, "⚡")
		}
		resp.Degraded = true
	}
	return nil
}

func (o *Orchestrator) canonicalURL() string {
	if o.opts.CurrentURL == "" {
		return ""
	}
	u, err := NonAMPURL(o.opts.CurrentURL)
	if err != nil {
		return ""
	}
	return u
}

func (o *Orchestrator) decision() sanitize.DecisionFunc {
	d := &taxonomy.Decider{
		Store:    o.deps.Store,
		Override: o.deps.Override,
		Debug:    o.opts.Debug,
		Context:  taxonomy.DecisionContext{ContentType: o.opts.ContentType, URL: o.opts.CurrentURL},
		Logger:   o.logger,
	}
	return func(e *taxonomy.Error, n *html.Node) bool {
		if o.opts.LocateSources {
			e.Sources = o.locate(n)
		}
		return d.Decide(*e)
	}
}

// locate returns the sources that enqueued n, when it is a tracked script or
// stylesheet, followed by the marker stack at n.
func (o *Orchestrator) locate(n *html.Node) []source.Source {
	srcs := source.Locate(n)
	if o.tracer == nil {
		return srcs
	}
	var enqueued []source.Source
	switch n.Data {
	case "script":
		src, _ := sanitize.Attr(n, "src")
		enqueued = o.tracer.ScriptSourcesFor(src, textOf(n))
	case "link":
		id, _ := sanitize.Attr(n, "id")
		if handle, ok := strings.CutSuffix(id, "-css"); ok {
			enqueued = o.tracer.StyleSources()[handle]
		}
	}
	return append(enqueued, srcs...)
}

// isMarkup reports whether raw opens with a tag once leading whitespace is
// dropped. Anything else, such as a JSON body, is not a document.
func isMarkup(raw string) bool {
	return strings.HasPrefix(strings.TrimLeft(raw, " \t\r\n"), "<")
}

func hasAMPAttr(n *html.Node) bool {
	for _, name := range []string{"amp", "⚡"} {
		if _, ok := sanitize.Attr(n, name); ok {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
