package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		opts Options
		want zapcore.Level
	}{
		{Options{}, zapcore.InfoLevel},
		{Options{Level: "WARN"}, zapcore.WarnLevel},
		{Options{Level: "error", Verbose: true}, zapcore.DebugLevel},
		{Options{Level: "debug", Format: "console"}, zapcore.DebugLevel},
	}
	for _, tc := range cases {
		l, err := New(tc.opts)
		if err != nil {
			t.Fatalf("%+v: %v", tc.opts, err)
		}
		if !l.Core().Enabled(tc.want) || (tc.want > zapcore.DebugLevel && l.Core().Enabled(tc.want-1)) {
			t.Fatalf("%+v: unexpected level", tc.opts)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected nop logger")
	}
	l := zap.NewExample()
	if FromContext(WithLogger(context.Background(), l)) != l {
		t.Fatalf("expected stored logger")
	}
}
