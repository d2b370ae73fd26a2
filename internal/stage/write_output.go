package stage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const writeOutputStage = "write-output"

// outputSettings is the resolved output section; "-" writes to stdout.
type outputSettings struct {
	path   string
	pretty bool
	lines  bool
	dir    string
}

func resolveOutput(meta *Meta) outputSettings {
	s := outputSettings{path: "-"}
	if meta == nil || meta.Output == nil {
		return s
	}
	if meta.Output.Out != "" {
		s.path = meta.Output.Out
	}
	s.pretty = meta.Output.Pretty
	s.lines = meta.Output.Lines
	s.dir = meta.Output.Dir
	return s
}

func anySucceeded(records []Record) bool {
	for _, r := range records {
		if r.Error == nil {
			return true
		}
	}
	return false
}

// encodeJSON renders v without escaping markup, so document bodies stay
// readable.
func encodeJSON(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderEnvelope produces the bytes for env: one compact record per line, or
// the whole envelope.
func renderEnvelope(env Envelope, s outputSettings) ([]byte, error) {
	if !s.lines {
		return encodeJSON(env, s.pretty)
	}
	var all bytes.Buffer
	for _, r := range env.Records {
		b, err := encodeJSON(r, false)
		if err != nil {
			return nil, err
		}
		all.Write(b)
	}
	return all.Bytes(), nil
}

func writeTo(outPath string, data []byte) error {
	if outPath == "" || outPath == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%s: %v", writeOutputStage, err)
		}
	}
	return os.WriteFile(outPath, data, 0o644)
}

// writeDocuments stores each successful body under dir at its locator and
// drops the body from the envelope.
func writeDocuments(ctx context.Context, in Envelope, dir string) (Envelope, error) {
	return processRecords(ctx, in, workerCount(in.Meta), func(_ context.Context, r Record) outcome {
		if r.RunID == "" {
			return outcome{rec: r}
		}
		target := filepath.Join(dir, filepath.FromSlash(r.Locator))
		if err := writeTo(target, []byte(r.Body)); err != nil {
			return failed(r, writeOutputStage, in.Meta, err)
		}
		r.Body = ""
		return outcome{rec: r}
	})
}

func writeOutputRunner(ctx context.Context, in Envelope, _ Deps) (Envelope, error) {
	settings := resolveOutput(in.Meta)
	env := in
	env.Records = append([]Record(nil), in.Records...)
	if settings.dir != "" {
		var err error
		if env, err = writeDocuments(ctx, env, settings.dir); err != nil {
			return Envelope{}, err
		}
	}
	if env.Meta == nil {
		env.Meta = &Meta{}
	}
	env.Meta.ContractVersion = "1"
	SortEnvelopeErrors(&env)
	result := env
	result.Records = append([]Record(nil), env.Records...)

	printed := env
	if env.Meta.Errors.hidesRecordErrors() {
		printed.Records = make([]Record, len(env.Records))
		for i, r := range env.Records {
			r.Error = nil
			printed.Records[i] = r
		}
	}
	data, err := renderEnvelope(printed, settings)
	if err != nil {
		return Envelope{}, err
	}
	if err := writeTo(settings.path, data); err != nil {
		return Envelope{}, err
	}

	// Lines output has no envelope errors section, so an all-failed run is
	// an error even when nothing was reported.
	if env.Meta.Errors.keepGoing() && !anySucceeded(result.Records) && (settings.lines || len(env.Errors) > 0) {
		return Envelope{}, fmt.Errorf("keep-going: no successful records")
	}
	return result, nil
}

func init() { Register(writeOutputStage, writeOutputRunner) }
