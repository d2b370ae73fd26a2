package version

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/flarebyte/ampscribe/internal/buildinfo"
)

func TestVersionDefaultOutputStable(t *testing.T) {
	oldVersion, oldCommit, oldDate := buildinfo.Version, buildinfo.Commit, buildinfo.Date
	defer func() {
		buildinfo.Version, buildinfo.Commit, buildinfo.Date = oldVersion, oldCommit, oldDate
	}()
	buildinfo.Version = ""
	buildinfo.Commit = ""
	buildinfo.Date = ""

	var out bytes.Buffer
	cmd := NewCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "ampscribe dev\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestVersionJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := writeVersion(&stdout, &stderr, false, true); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"version", "go", "go_os", "go_arch", "timestamp"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing key %s in %v", k, got)
		}
	}
	if stderr.Len() == 0 {
		t.Fatalf("expected human line on stderr")
	}
}
