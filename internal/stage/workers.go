package stage

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// workerCount returns meta.Workers, or the CPU count when unset.
func workerCount(meta *Meta) int {
	if meta != nil && meta.Workers > 0 {
		return meta.Workers
	}
	return max(runtime.NumCPU(), 1)
}

// outcome is what a stage produced for one record.
type outcome struct {
	rec   Record
	err   *Error
	fatal error
}

// processRecords runs fn over every record without an error, at most
// workers at a time. Records keep their position; the first fatal outcome
// in record order aborts the stage.
func processRecords(ctx context.Context, in Envelope, workers int, fn func(context.Context, Record) outcome) (Envelope, error) {
	outcomes := make([]outcome, len(in.Records))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, r := range in.Records {
		if r.Error != nil {
			outcomes[i] = outcome{rec: r}
			continue
		}
		g.Go(func() error {
			outcomes[i] = fn(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	out := in
	out.Records = make([]Record, len(in.Records))
	var errs []Error
	for i, o := range outcomes {
		if o.fatal != nil {
			return Envelope{}, o.fatal
		}
		out.Records[i] = o.rec
		if o.err != nil {
			errs = append(errs, *o.err)
		}
	}
	appendErrors(&out, errs)
	return out, nil
}

// failed turns err into an envelope error in keep-going mode and into a
// fatal error otherwise.
func failed(r Record, stageName string, meta *Meta, err error) outcome {
	mode, embed := errorMode(meta)
	if mode != modeKeepGoing {
		return outcome{rec: r, fatal: fmt.Errorf("%s: %s: %w", stageName, r.Locator, err)}
	}
	msg := cleanMessage(err.Error())
	if embed {
		r.Error = &RecError{Stage: stageName, Message: msg}
	}
	return outcome{rec: r, err: &Error{Stage: stageName, Locator: r.Locator, Message: msg}}
}
