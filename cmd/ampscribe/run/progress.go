package run

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/flarebyte/ampscribe/internal/stage"
)

const progressInterval = 500 * time.Millisecond

// progress prints a line per stage boundary, and every interval while a
// stage runs, to w.
type progress struct {
	w        io.Writer
	interval time.Duration
	start    time.Time

	mu       sync.Mutex
	stage    string
	docs     int
	errs     int
	blocking int
}

// newProgressReporter returns nil for a nil writer; a nil reporter runs
// stages without output.
func newProgressReporter(w io.Writer) *progress {
	if w == nil {
		return nil
	}
	return &progress{w: w, interval: progressInterval, start: time.Now()}
}

func (p *progress) runStage(ctx context.Context, name string, in stage.Envelope, deps stage.Deps) (stage.Envelope, error) {
	if p == nil {
		return stage.Run(ctx, name, in, deps)
	}
	p.observe(name, in)
	p.print()

	tickCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				p.print()
			case <-tickCtx.Done():
				return
			}
		}
	}()

	out, err := stage.Run(ctx, name, in, deps)
	stop()
	wg.Wait()
	if err != nil {
		return out, err
	}
	p.observe(name, out)
	p.print()
	return out, nil
}

func (p *progress) observe(name string, env stage.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = name
	p.docs = len(env.Records)
	p.errs = len(env.Errors)
	p.blocking = 0
	if env.Meta != nil {
		p.blocking = env.Meta.Blocking
	}
}

func (p *progress) print() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "progress stage=%s documents=%d errors=%d blocking=%d elapsed=%s\n",
		p.stage, p.docs, p.errs, p.blocking, time.Since(p.start).Round(time.Millisecond))
}
