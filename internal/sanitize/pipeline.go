// Package sanitize rewrites a parsed document into the allowed subset. It
// runs an ordered list of registered stages, each of which reports
// violations and requires component assets through a shared Context.
package sanitize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/allowlist"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Pipeline is a fixed stage order with its arguments.
type Pipeline struct {
	Stages []string
	Args   Args
	Table  *allowlist.Table
	Embeds []EmbedHandler
	Decide DecisionFunc
	Logger *zap.Logger
}

// Result is the outcome of one run.
type Result struct {
	Document *Document         `json:"-"`
	Body     string            `json:"body"`
	Assets   Assets            `json:"assets"`
	Results  []taxonomy.Result `json:"errors"`
}

// Blocking reports whether any error was left unsanitized.
func (r Result) Blocking() bool { return taxonomy.IsBlocking(r.Results) }

// StageNames is the configured order, or DefaultStages.
func (p *Pipeline) StageNames() []string {
	if len(p.Stages) == 0 {
		return append([]string(nil), DefaultStages...)
	}
	return append([]string(nil), p.Stages...)
}

// Sanitize parses raw, runs the stages and renders the result.
func (p *Pipeline) Sanitize(raw string) (Result, error) {
	doc, err := Parse(raw)
	if err != nil {
		return Result{}, fmt.Errorf("parse document: %w", err)
	}
	res, err := p.SanitizeDocument(doc)
	if err != nil {
		return Result{}, err
	}
	body, err := doc.Render()
	if err != nil {
		return Result{}, fmt.Errorf("render document: %w", err)
	}
	res.Body = body
	return res, nil
}

// SanitizeDocument runs the stages against doc in place. Body is left empty.
func (p *Pipeline) SanitizeDocument(doc *Document) (Result, error) {
	run := make([]Stage, 0, len(p.StageNames()))
	for _, name := range p.StageNames() {
		s, err := Lookup(name)
		if err != nil {
			return Result{}, err
		}
		run = append(run, s)
	}
	c := newContext(p.Args, p.Table, p.Decide, p.Logger)

	var applied []EmbedHandler
	for _, e := range p.Embeds {
		if e.Apply(doc, p.Args) {
			applied = append(applied, e)
		}
	}
	for i, s := range run {
		if err := s(doc, c); err != nil {
			return Result{}, fmt.Errorf("stage %s: %w", p.StageNames()[i], err)
		}
	}
	for _, e := range applied {
		for handle, url := range e.Scripts() {
			c.AddScript(handle, url)
		}
	}
	c.Logger.Debug("sanitized document",
		zap.Int("errors", len(c.results)),
		zap.Int("scripts", len(c.scripts)),
		zap.Int("styles", len(c.styles)))
	return Result{
		Document: doc,
		Assets:   Assets{Scripts: c.scripts, Styles: c.styles},
		Results:  c.Results(),
	}, nil
}
