package taxonomy

import (
	"fmt"

	"go.uber.org/zap"
)

// Status is the persisted review state of a slug.
type Status string

const (
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusUnreviewed Status = "unreviewed"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAccepted, StatusRejected, StatusUnreviewed:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid status: %q (expected accepted, rejected or unreviewed)", s)
}

// PolicyStore persists review decisions by slug. A missing slug is reported
// as StatusUnreviewed with a nil error.
type PolicyStore interface {
	Get(slug string) (Status, error)
	Set(slug string, status Status) error
}

// DecisionContext is what an override may vary its decision by.
type DecisionContext struct {
	ContentType string
	URL         string
}

// Override may change the sanitized decision of an error. It never sees
// sources.
type Override func(e Error, ctx DecisionContext, sanitized bool) bool

// AutoAccept forces sanitized=true for the listed content types.
func AutoAccept(contentTypes ...string) Override {
	set := make(map[string]struct{}, len(contentTypes))
	for _, ct := range contentTypes {
		set[ct] = struct{}{}
	}
	return func(_ Error, ctx DecisionContext, sanitized bool) bool {
		if _, ok := set[ctx.ContentType]; ok {
			return true
		}
		return sanitized
	}
}

// Chain applies overrides in order, each seeing the previous decision.
func Chain(overrides ...Override) Override {
	return func(e Error, ctx DecisionContext, sanitized bool) bool {
		for _, o := range overrides {
			if o != nil {
				sanitized = o(e, ctx, sanitized)
			}
		}
		return sanitized
	}
}

// Decider turns errors into sanitized decisions and records them.
type Decider struct {
	Store    PolicyStore
	Override Override
	// Amend may add identifying attributes before the slug is computed.
	Amend   func(Error) Error
	Debug   bool
	Context DecisionContext
	Logger  *zap.Logger
	Results *Results
}

// Evaluate computes the decision for e without recording it. Only an
// explicitly accepted slug is sanitized; debug mode ignores the store.
func (d *Decider) Evaluate(e Error) bool {
	e = e.WithoutSources()
	sanitized := false
	if !d.Debug && d.Store != nil {
		slug := Slug(e)
		st, err := d.Store.Get(slug)
		if err != nil {
			d.logger().Warn("policy lookup failed", zap.String("slug", slug), zap.Error(err))
		} else if st == StatusAccepted {
			sanitized = true
		}
	}
	if d.Override != nil {
		sanitized = d.Override(e, d.Context, sanitized)
	}
	return sanitized
}

// Decide normalizes e, evaluates it and appends the result.
func (d *Decider) Decide(e Error) bool {
	if e.Code == "" {
		e.Code = CodeUnknown
	}
	if d.Amend != nil {
		sources := e.Sources
		e = d.Amend(e.WithoutSources())
		e.Sources = sources
	}
	sanitized := d.Evaluate(e)
	if d.Results != nil {
		d.Results.Add(Result{Error: e, Sanitized: sanitized})
	}
	d.logger().Debug("validation error", zap.String("code", e.Code), zap.String("slug", Slug(e)), zap.Bool("sanitized", sanitized))
	return sanitized
}

func (d *Decider) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
