package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/flarebyte/ampscribe/internal/testutil"
)

type runResult struct {
	code   int
	stdout []byte
	stderr []byte
}

func buildAmpscribe(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "ampscribe")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/ampscribe")
	cmd.Dir = filepath.Join("..", "..")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, string(out))
	}
	return bin
}

func runCmd(t *testing.T, bin string, args ...string) runResult {
	t.Helper()
	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}
	return runResult{code: code, stdout: stdout.Bytes(), stderr: stderr.Bytes()}
}

func assertStable(t *testing.T, runs []runResult) {
	t.Helper()
	if len(runs) < 2 {
		t.Fatalf("need >=2 runs")
	}
	a := runs[0]
	for i, r := range runs[1:] {
		if r.code != a.code {
			t.Fatalf("exit code drift at run %d: %d vs %d", i+1, r.code, a.code)
		}
		if !bytes.Equal(r.stdout, a.stdout) {
			t.Fatalf("stdout drift at run %d", i+1)
		}
		if !bytes.Equal(r.stderr, a.stderr) {
			t.Fatalf("stderr drift at run %d", i+1)
		}
	}
}

// siteConfig copies the fixture site and writes a config for it.
func siteConfig(t *testing.T, body string) string {
	t.Helper()
	d := t.TempDir()
	site := filepath.Join(d, "site")
	if err := testutil.CopyTree(filepath.Join("testdata", "site"), site); err != nil {
		t.Fatalf("copy: %v", err)
	}
	cfg := filepath.Join(d, "cfg.cue")
	content := fmt.Sprintf("{\n  configVersion: \"1\"\n  discovery: { root: %q }\n%s\n}\n", site, body)
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	return cfg
}

func TestDeterminism_Sanitize_MultiRuns(t *testing.T) {
	bin := buildAmpscribe(t)
	cfg := siteConfig(t, `  action: "sanitize"
  pipeline: { contentMaxWidth: 600 }
  errors: { mode: "keep-going", embedErrors: true }`)
	var runs []runResult
	for i := 0; i < 5; i++ {
		runs = append(runs, runCmd(t, bin, "--log-level=error", "run", "--config", cfg))
	}
	assertStable(t, runs)
	if runs[0].code != 0 {
		t.Fatalf("unexpected exit code %d: %s", runs[0].code, string(runs[0].stderr))
	}
	var env struct {
		Records []struct {
			Locator string `json:"locator"`
			Body    string `json:"body"`
		} `json:"records"`
	}
	if err := json.Unmarshal(runs[0].stdout, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(env.Records) != 3 {
		t.Fatalf("expected 3 documents (drafts ignored), got %d", len(env.Records))
	}
	if env.Records[0].Locator != "index.html" || !bytes.Contains([]byte(env.Records[0].Body), []byte(`width="600" height="300"`)) {
		t.Fatalf("unexpected index.html record: %+v", env.Records[0])
	}
}

func TestDeterminism_Workers(t *testing.T) {
	bin := buildAmpscribe(t)
	var runs []runResult
	for _, w := range []int{1, 2, 8} {
		cfg := siteConfig(t, fmt.Sprintf("  action: \"sanitize\"\n  workers: %d", w))
		r := runCmd(t, bin, "--log-level=error", "run", "--config", cfg)
		// Roots differ per temp dir; only the records matter here.
		var env struct {
			Records json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(r.stdout, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		runs = append(runs, runResult{code: r.code, stdout: env.Records, stderr: r.stderr})
	}
	assertStable(t, runs)
}

func TestValidate_BlockingExitCode(t *testing.T) {
	bin := buildAmpscribe(t)
	cfg := siteConfig(t, `  action: "validate"`)
	var runs []runResult
	for i := 0; i < 3; i++ {
		runs = append(runs, runCmd(t, bin, "--log-level=error", "run", "--config", cfg))
	}
	assertStable(t, runs)
	if runs[0].code != 2 {
		t.Fatalf("expected exit code 2, got %d: %s", runs[0].code, string(runs[0].stderr))
	}
	if string(runs[0].stderr) != "blocking documents: 2\n" {
		t.Fatalf("unexpected stderr: %q", string(runs[0].stderr))
	}
}
