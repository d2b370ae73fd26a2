package stage

import (
	"context"

	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/respcache"
	"github.com/flarebyte/ampscribe/internal/source"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Deps are collaborators a caller may inject. Nil fields are built from
// the envelope meta.
type Deps struct {
	Logger   *zap.Logger
	Store    taxonomy.PolicyStore
	Cache    *respcache.Cache
	Registry *source.Registry
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Runner executes a stage.
type Runner func(ctx context.Context, in Envelope, deps Deps) (Envelope, error)

var registry = map[string]Runner{}

// Register adds a stage runner.
func Register(name string, r Runner) {
	registry[name] = r
}

// Run executes a registered stage by name.
func Run(ctx context.Context, name string, in Envelope, deps Deps) (Envelope, error) {
	r, ok := registry[name]
	if !ok {
		return Envelope{}, ErrUnknown{name: name}
	}
	deps.logger().Debug("stage start", zap.String("stage", name), zap.Int("records", len(in.Records)))
	out, err := r(ctx, in, deps)
	if err != nil {
		return Envelope{}, err
	}
	if out.Meta != nil {
		out.Meta.Stage = name
	}
	return out, nil
}

// ErrUnknown is returned when a stage is not found.
type ErrUnknown struct{ name string }

func (e ErrUnknown) Error() string { return "unknown stage: " + e.name }
