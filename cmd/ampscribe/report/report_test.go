package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestReport_FromStdin(t *testing.T) {
	in := strings.NewReader(`{"records":[{"locator":"a.html"}],"meta":{"blocking":0}}`)
	var out bytes.Buffer
	cmd := NewCmd()
	cmd.SetIn(in)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out.String(), "a.html") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestReport_InvalidInput(t *testing.T) {
	cmd := NewCmd()
	cmd.SetIn(strings.NewReader("not json"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "invalid run output") {
		t.Fatalf("unexpected error: %v", err)
	}
}
