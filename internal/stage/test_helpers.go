package stage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const evilFragment = `<script>evil()</script><p>ok</p>`

func mustRead(t *testing.T, p string) []byte {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return b
}

func mustWrite(t *testing.T, p string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

func decodeEnvelope(t *testing.T, b []byte) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, string(b))
	}
	return env
}

func runAll(t *testing.T, in Envelope, deps Deps, stages ...string) (Envelope, error) {
	t.Helper()
	out := in
	var err error
	for _, name := range stages {
		out, err = Run(context.Background(), name, out, deps)
		if err != nil {
			return Envelope{}, err
		}
	}
	return out, nil
}

func siteEnvelope(root string) Envelope {
	return Envelope{Meta: &Meta{
		Config:    &ConfigMeta{ConfigVersion: "1", Action: "sanitize"},
		Discovery: &DiscoveryMeta{Root: root},
		Workers:   2,
	}}
}
