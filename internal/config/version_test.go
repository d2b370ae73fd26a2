package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_UnknownConfigVersion(t *testing.T) {
	d := t.TempDir()
	cfg := filepath.Join(d, "unknown_version.cue")
	content := "{\n  configVersion: \"2\"\n  action: \"nop\"\n}\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	_, err := Parse(cfg)
	if err == nil {
		t.Fatalf("expected error")
	}
	want := "unsupported configVersion: \"2\" (supported: 1)"
	if err.Error() != want {
		t.Fatalf("unexpected error\nwant: %s\n got: %s", want, err.Error())
	}
}

func TestCheckConfigVersion(t *testing.T) {
	if err := checkConfigVersion(CurrentConfigVersion); err != nil {
		t.Fatalf("current version rejected: %v", err)
	}
	if err := checkConfigVersion(""); err == nil {
		t.Fatalf("expected empty version to be rejected")
	}
}
