package allowlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_KnownTags(t *testing.T) {
	tbl := Default()
	specs, ok := tbl.Lookup("A")
	if !ok || len(specs) != 1 {
		t.Fatalf("expected a spec for a, got %v %v", specs, ok)
	}
	if !specs[0].AllowsAttribute("href") || !specs[0].AllowsAttribute("data-track") || !specs[0].AllowsAttribute("aria-label") {
		t.Fatalf("expected href and global attributes to be allowed")
	}
	if specs[0].AllowsAttribute("onclick") {
		t.Fatalf("onclick must not be allowed")
	}
	if _, ok := tbl.Lookup("iframe"); ok {
		t.Fatalf("iframe must not be in the default table")
	}
	if _, ok := tbl.Lookup("img"); ok {
		t.Fatalf("img must not be in the default table")
	}
}

func TestSpec_Descendants(t *testing.T) {
	specs, ok := Default().Lookup("button")
	if !ok {
		t.Fatalf("button missing")
	}
	if !specs[0].AllowsDescendant("span") || specs[0].AllowsDescendant("div") {
		t.Fatalf("unexpected descendant rules: %+v", specs[0].Descendants)
	}
	p, _ := Default().Lookup("p")
	if !p[0].AllowsDescendant("anything") {
		t.Fatalf("empty descendants must allow any")
	}
}

func TestLoad_CustomTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.yaml")
	content := "tags:\n  Widget:\n    - attributes: [Size]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	specs, ok := tbl.Lookup("widget")
	if !ok || !specs[0].AllowsAttribute("size") {
		t.Fatalf("custom table lookup failed: %+v", specs)
	}
	if got := tbl.Tags(); len(got) != 1 || got[0] != "widget" {
		t.Fatalf("tags: %v", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("tags: [unclosed")); err == nil {
		t.Fatalf("expected error")
	}
}
