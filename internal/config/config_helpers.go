package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// compileCUE loads and compiles a CUE file at the given path.
// It preserves the original error messages used by callers.
func compileCUE(path string) (cue.Value, error) {
	if filepath.Ext(path) != ".cue" {
		return cue.Value{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("invalid config: %v", err)
	}
	return v, nil
}

func section(v cue.Value, name string) (cue.Value, bool) {
	sv := v.LookupPath(cue.ParsePath(name))
	return sv, sv.Exists()
}

func decodeString(v cue.Value, name string, dst *string) bool {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() || f.Kind() != cue.StringKind {
		return false
	}
	return f.Decode(dst) == nil
}

func decodeBool(v cue.Value, name string, dst *bool) bool {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() || f.Kind() != cue.BoolKind {
		return false
	}
	return f.Decode(dst) == nil
}

func decodeInt(v cue.Value, name string, dst *int) bool {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() || f.Kind() != cue.IntKind {
		return false
	}
	return f.Decode(dst) == nil
}

func decodeStrings(v cue.Value, name string, dst *[]string) bool {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() || f.Kind() != cue.ListKind {
		return false
	}
	return f.Decode(dst) == nil
}
