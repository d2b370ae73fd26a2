package run

import (
	"testing"

	"github.com/flarebyte/ampscribe/internal/stage"
)

func keepGoingMeta(action string) *stage.Meta {
	return &stage.Meta{
		Config: &stage.ConfigMeta{Action: action},
		Errors: &stage.ErrorsMeta{Mode: "keep-going"},
	}
}

func assertExitError(t *testing.T, err error, wantMsg string, wantCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != wantMsg {
		t.Fatalf("unexpected error: %v", err)
	}
	ec, ok := err.(interface{ ExitCode() int })
	if !ok || ec.ExitCode() != wantCode {
		t.Fatalf("unexpected exit code")
	}
}

func TestEvaluateRunExit_KeepGoing_SuccessRecord(t *testing.T) {
	env := stage.Envelope{
		Meta:    keepGoingMeta("sanitize"),
		Records: []stage.Record{{Locator: "a"}},
		Errors:  []stage.Error{{Stage: "sanitize-documents", Locator: "b", Message: "boom"}},
	}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateRunExit_KeepGoing_AllFailed(t *testing.T) {
	env := stage.Envelope{
		Meta:    keepGoingMeta("sanitize"),
		Records: []stage.Record{{Locator: "a", Error: &stage.RecError{Stage: "x", Message: "m"}}},
		Errors:  []stage.Error{{Stage: "x", Locator: "a", Message: "m"}},
	}
	assertExitError(t, evaluateRunExit(env), "keep-going: no successful records", exitCodeExecErr)
}

func TestEvaluateRunExit_FailFastMode(t *testing.T) {
	env := stage.Envelope{
		Meta: &stage.Meta{
			Config: &stage.ConfigMeta{Action: "sanitize"},
			Errors: &stage.ErrorsMeta{Mode: "fail-fast"},
		},
		Errors: []stage.Error{{Stage: "x", Message: "m"}},
	}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateRunExit_SanitizeIgnoresBlocking(t *testing.T) {
	env := stage.Envelope{Meta: &stage.Meta{Config: &stage.ConfigMeta{Action: "sanitize"}, Blocking: 3}}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateRunExit_ValidateBlocking(t *testing.T) {
	env := stage.Envelope{Meta: &stage.Meta{Config: &stage.ConfigMeta{Action: "validate"}, Blocking: 2}}
	assertExitError(t, evaluateRunExit(env), "blocking documents: 2", exitCodeBlocking)
}

func TestEvaluateRunExit_ValidateClean(t *testing.T) {
	env := stage.Envelope{Meta: &stage.Meta{Config: &stage.ConfigMeta{Action: "validate"}}}
	if err := evaluateRunExit(env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluateRunExit_ValidateExecutionErrorWins(t *testing.T) {
	env := stage.Envelope{
		Meta:   keepGoingMeta("validate"),
		Errors: []stage.Error{{Stage: "sanitize-documents", Locator: "a", Message: "boom"}},
	}
	env.Meta.Blocking = 1
	assertExitError(t, evaluateRunExit(env), "execution errors", exitCodeExecErr)
}

func TestPreparedActionStages(t *testing.T) {
	for _, action := range []string{"sanitize", "validate"} {
		stages, err := PreparedActionStages(action)
		if err != nil || len(stages) != 3 || stages[2] != "write-output" {
			t.Fatalf("%s: unexpected stages %v (%v)", action, stages, err)
		}
	}
	if _, err := PreparedActionStages("nop"); err == nil {
		t.Fatalf("expected error")
	}
}
