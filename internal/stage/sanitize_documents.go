package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/respcache"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
	"github.com/flarebyte/ampscribe/internal/validation"
)

const sanitizeDocumentsStage = "sanitize-documents"

// sanitize-documents: run one validation orchestrator per document on a
// worker pool, optionally through the response cache.
func sanitizeDocumentsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	rt, err := newDocumentRuntime(in, deps)
	if err != nil {
		return Envelope{}, err
	}
	defer func() {
		if cerr := rt.close(); cerr != nil {
			rt.logger.Warn("close runtime", zap.Error(cerr))
		}
	}()

	out, err := processRecords(ctx, in, workerCount(in.Meta), func(ctx context.Context, r Record) outcome {
		rec, err := rt.process(ctx, r)
		if err != nil {
			rt.logger.Warn("document failed", zap.String("locator", r.Locator), zap.Error(err))
			return failed(r, sanitizeDocumentsStage, in.Meta, err)
		}
		return outcome{rec: rec}
	})
	if err != nil {
		return Envelope{}, err
	}
	summarizeRecords(&out)
	return out, nil
}

func (rt *documentRuntime) process(ctx context.Context, r Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	raw, err := os.ReadFile(filepath.Join(rt.root, filepath.FromSlash(r.Locator)))
	if err != nil {
		return Record{}, err
	}
	opts, err := rt.options(r.Locator)
	if err != nil {
		return Record{}, err
	}
	if rt.cache == nil || !respcache.Enabled(opts.Debug, opts.LocateSources, true) {
		resp, err := rt.run(opts, string(raw))
		if err != nil {
			return Record{}, err
		}
		return recordFromResponse(r, resp, false), nil
	}

	key, err := respcache.Key(respcache.KeyParts{
		Config:    opts,
		Args:      rt.pipeline.Args,
		Allowlist: rt.pipeline.Table.Digest(),
		Raw:       string(raw),
		Stages:    rt.pipeline.StageNames(),
		Embeds:    rt.embeds(),
		Version:   rt.cacheVersion,
	})
	if err != nil {
		return Record{}, err
	}
	decider := &taxonomy.Decider{
		Store:    rt.store,
		Override: rt.override,
		Context:  taxonomy.DecisionContext{ContentType: opts.ContentType, URL: opts.CurrentURL},
		Logger:   rt.logger,
	}
	entry, hit, err := rt.cache.GetOrCompute(ctx, key, decider.Evaluate, func(context.Context) (respcache.Entry, error) {
		resp, err := rt.run(opts, string(raw))
		if err != nil {
			return respcache.Entry{}, err
		}
		stored := resp
		stored.Body = ""
		payload, err := json.Marshal(stored)
		if err != nil {
			return respcache.Entry{}, err
		}
		return respcache.Entry{Body: resp.Body, Payload: payload, Results: respcache.Snapshots(resp.Results)}, nil
	})
	if err != nil {
		return Record{}, err
	}
	var resp validation.Response
	if err := json.Unmarshal(entry.Payload, &resp); err != nil {
		return Record{}, fmt.Errorf("decode cached response: %w", err)
	}
	resp.Body = entry.Body
	rt.logger.Debug("cache lookup", zap.String("locator", r.Locator), zap.String("cache_key", key), zap.Bool("hit", hit))
	return recordFromResponse(r, resp, hit), nil
}

func (rt *documentRuntime) run(opts validation.Options, raw string) (validation.Response, error) {
	o := validation.New(opts, rt.deps())
	if err := o.StartTracing(nil, nil); err != nil {
		return validation.Response{}, err
	}
	return o.Process(raw)
}

func recordFromResponse(r Record, resp validation.Response, cached bool) Record {
	assets := resp.Assets
	r.RunID = resp.RunID
	r.Body = resp.Body
	r.Assets = &assets
	r.Results = resp.Results
	r.Blocking = resp.Blocking
	r.Degraded = resp.Degraded
	r.Redirect = resp.Redirect
	r.Cached = cached
	return r
}

// summarizeRecords aggregates errors across successful documents.
func summarizeRecords(out *Envelope) {
	if out.Meta == nil {
		out.Meta = &Meta{}
	}
	var errs []taxonomy.Error
	blocking := 0
	for _, r := range out.Records {
		if r.Error != nil {
			continue
		}
		for _, res := range r.Results {
			errs = append(errs, res.Error)
		}
		if r.Blocking {
			blocking++
		}
	}
	s := taxonomy.Summarize(errs)
	out.Meta.Summary = &s
	out.Meta.Blocking = blocking
}

func init() { Register(sanitizeDocumentsStage, sanitizeDocumentsRunner) }
