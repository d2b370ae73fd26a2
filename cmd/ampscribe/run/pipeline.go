package run

import (
	"context"
	"io"

	"github.com/flarebyte/ampscribe/internal/stage"
)

// executePipeline validates the config, then runs the stages of its action.
func executePipeline(ctx context.Context, cfgPath string, deps stage.Deps, progressOut io.Writer) (stage.Envelope, error) {
	in := stage.Envelope{Records: []stage.Record{}, Meta: &stage.Meta{ConfigPath: cfgPath}}
	out, err := stage.Run(ctx, "validate-config", in, deps)
	if err != nil {
		return stage.Envelope{}, err
	}
	stages, err := PreparedActionStages(out.Meta.Config.Action)
	if err != nil {
		return stage.Envelope{}, err
	}
	reporter := newProgressReporter(progressOut)
	for _, name := range stages {
		out, err = reporter.runStage(ctx, name, out, deps)
		if err != nil {
			return stage.Envelope{}, err
		}
	}
	return out, nil
}
