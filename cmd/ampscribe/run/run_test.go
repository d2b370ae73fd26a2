package run

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flarebyte/ampscribe/internal/stage"
)

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExecutePipeline_ValidateReportsProgressAndBlocking(t *testing.T) {
	d := t.TempDir()
	site := filepath.Join(d, "site")
	writeFile(t, filepath.Join(site, "index.html"), `<script>evil()</script><p>ok</p>`)
	cfg := filepath.Join(d, "cfg.cue")
	writeFile(t, cfg, fmt.Sprintf(`{
  configVersion: "1"
  action: "validate"
  discovery: { root: %q }
  output: { out: %q, dir: %q }
}`, site, filepath.Join(d, "out.json"), filepath.Join(d, "docs")))

	var progress bytes.Buffer
	env, err := executePipeline(context.Background(), cfg, stage.Deps{}, &progress)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(progress.String(), "progress stage=sanitize-documents documents=1 errors=0") {
		t.Fatalf("unexpected progress: %q", progress.String())
	}
	assertExitError(t, evaluateRunExit(env), "blocking documents: 1", exitCodeBlocking)
	b, err := os.ReadFile(filepath.Join(d, "docs", "index.html"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if !strings.Contains(string(b), "AMP_VALIDATION_ERRORS:") {
		t.Fatalf("expected summary comment: %s", string(b))
	}
}

func TestRunCmd_RequiresConfig(t *testing.T) {
	cmd := NewCmd()
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil || err.Error() != "missing required flag: --config" {
		t.Fatalf("unexpected error: %v", err)
	}
}
