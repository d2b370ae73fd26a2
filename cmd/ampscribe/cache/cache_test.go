package cache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flarebyte/ampscribe/internal/respcache"
)

func TestPurge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resp.db")
	backend, err := respcache.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := backend.Set(context.Background(), "old", respcache.Entry{Body: "x", CreatedAt: past.Add(-time.Hour), ExpiresAt: past}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := backend.Set(context.Background(), "new", respcache.Entry{Body: "y", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out bytes.Buffer
	cmd := NewCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"purge", "--path", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if out.String() != "removed 1 expired entries\n" {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestPurge_RequiresPath(t *testing.T) {
	cmd := NewCmd()
	cmd.SetArgs([]string{"purge"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error")
	}
}
