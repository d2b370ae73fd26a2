// Package override runs a sandboxed Lua predicate that may change the
// sanitized decision of a validation error.
//
// The script sees the globals validation_error (the error as a table,
// sources omitted), code, sanitized, content_type and url, and returns a
// boolean.
// Any other return value, an error or a timeout keeps the incoming decision.
package override

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

const defaultTimeoutMs = 200

// Options configures the sandbox.
type Options struct {
	Script    string
	TimeoutMs int
	Logger    *zap.Logger
}

// Compile parses the script once and returns an override that runs it in a
// fresh state per call, so the result is safe for concurrent use.
func Compile(opts Options) (taxonomy.Override, error) {
	chunk, err := parse.Parse(strings.NewReader(opts.Script), "override")
	if err != nil {
		return nil, fmt.Errorf("override: %w", err)
	}
	proto, err := lua.Compile(chunk, "override")
	if err != nil {
		return nil, fmt.Errorf("override: %w", err)
	}
	timeout := opts.TimeoutMs
	if timeout <= 0 {
		timeout = defaultTimeoutMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("override")

	return func(e taxonomy.Error, dctx taxonomy.DecisionContext, sanitized bool) bool {
		out, err := run(proto, timeout, globalsFor(e, dctx, sanitized))
		if err != nil {
			logger.Warn("override failed", zap.String("code", e.Code), zap.Error(err))
			return sanitized
		}
		b, ok := out.(bool)
		if !ok {
			logger.Warn("override returned non-boolean", zap.String("code", e.Code), zap.Any("value", out))
			return sanitized
		}
		return b
	}, nil
}

func globalsFor(e taxonomy.Error, dctx taxonomy.DecisionContext, sanitized bool) map[string]any {
	var errTable map[string]any
	if b, err := json.Marshal(e.WithoutSources()); err == nil {
		_ = json.Unmarshal(b, &errTable)
	}
	return map[string]any{
		"validation_error": errTable,
		"code":             e.Code,
		"sanitized":        sanitized,
		"content_type":     dctx.ContentType,
		"url":              dctx.URL,
	}
}

func run(proto *lua.FunctionProto, timeoutMs int, globals map[string]any) (any, error) {
	L := newSandboxState(seedFor(globals))
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()
	L.SetContext(ctx)

	for k, v := range globals {
		L.SetGlobal(k, toLValue(L, v))
	}
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, 1, nil); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sandbox timeout")
		}
		return nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return fromLValue(ret), nil
}

func newSandboxState(seed int64) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:    true,
		RegistrySize:    256,
		RegistryMaxSize: 1024,
	})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// Decisions must be repeatable for the cache recheck.
	if mathTbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		rng := rand.New(rand.NewSource(seed))
		mathTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
			L.Push(lua.LNumber(rng.Float64()))
			return 1
		}))
		mathTbl.RawSetString("randomseed", L.NewFunction(func(*lua.LState) int { return 0 }))
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func seedFor(globals map[string]any) int64 {
	h := fnv.New64a()
	code, _ := globals["code"].(string)
	ct, _ := globals["content_type"].(string)
	_, _ = h.Write([]byte(code))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(ct))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}
		return tbl
	default:
		return lua.LNil
	}
}

func fromLValue(v lua.LValue) any {
	switch v.Type() {
	case lua.LTBool:
		return lua.LVAsBool(v)
	case lua.LTNumber:
		return float64(v.(lua.LNumber))
	case lua.LTString:
		return v.String()
	default:
		return nil
	}
}
