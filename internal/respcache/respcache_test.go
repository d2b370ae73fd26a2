package respcache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/flarebyte/ampscribe/internal/policy"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var scriptErr = taxonomy.Error{
	Code:       taxonomy.CodeDisallowedTag,
	Attributes: map[string]any{"node_name": "script", "parent_name": "body"},
}

func storeEvaluator(store taxonomy.PolicyStore) Evaluator {
	d := &taxonomy.Decider{Store: store}
	return d.Evaluate
}

func computeCounting(n *int32, body string) ComputeFunc {
	return func(context.Context) (Entry, error) {
		atomic.AddInt32(n, 1)
		return Entry{
			Body:    body,
			Results: Snapshots([]taxonomy.Result{{Error: scriptErr, Sanitized: false}}),
		}, nil
	}
}

func TestKey(t *testing.T) {
	a, err := Key(KeyParts{Config: map[string]any{"w": 600}, Raw: "<p>x</p>", Stages: []string{"img"}, Version: "1"})
	require.NoError(t, err)
	b, err := Key(KeyParts{Config: map[string]any{"w": 600}, Raw: "<p>x</p>", Stages: []string{"img"}, Version: "1"})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c, err := Key(KeyParts{Config: map[string]any{"w": 600}, Raw: "<p>x</p>", Stages: []string{"img"}, Version: "2"})
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	_, err = Key(KeyParts{Config: func() {}})
	require.Error(t, err)
}

func TestGetOrCompute_HitSkipsCompute(t *testing.T) {
	store := policy.NewMemoryStore()
	c := New(NewMemoryBackend(), Options{})
	var n int32
	ctx := context.Background()

	first, hit, err := c.GetOrCompute(ctx, "k", storeEvaluator(store), computeCounting(&n, "one"))
	require.NoError(t, err)
	require.False(t, hit)
	second, hit, err := c.GetOrCompute(ctx, "k", storeEvaluator(store), computeCounting(&n, "two"))
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, first.Body, second.Body)
	require.EqualValues(t, 1, n)
}

func TestGetOrCompute_PolicyChangeIsMiss(t *testing.T) {
	store := policy.NewMemoryStore()
	c := New(NewMemoryBackend(), Options{})
	var n int32
	ctx := context.Background()

	_, _, err := c.GetOrCompute(ctx, "k", storeEvaluator(store), computeCounting(&n, "one"))
	require.NoError(t, err)
	require.NoError(t, store.Set(taxonomy.Slug(scriptErr), taxonomy.StatusAccepted))

	got, hit, err := c.GetOrCompute(ctx, "k", storeEvaluator(store), computeCounting(&n, "two"))
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "two", got.Body)
	require.EqualValues(t, 2, n)
}

func TestGetOrCompute_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(NewMemoryBackend(), Options{Now: func() time.Time { return now }})
	var n int32
	ctx := context.Background()
	eval := storeEvaluator(nil)

	e, _, err := c.GetOrCompute(ctx, "k", eval, computeCounting(&n, "one"))
	require.NoError(t, err)
	require.Equal(t, now.Add(DefaultTTL), e.ExpiresAt)

	now = now.Add(DefaultTTL - time.Second)
	_, hit, err := c.GetOrCompute(ctx, "k", eval, computeCounting(&n, "two"))
	require.NoError(t, err)
	require.True(t, hit)

	now = now.Add(time.Second)
	_, hit, err = c.GetOrCompute(ctx, "k", eval, computeCounting(&n, "three"))
	require.NoError(t, err)
	require.False(t, hit)
	require.EqualValues(t, 2, n)
}

func TestGetOrCompute_ErrorIsNotCached(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, Options{})
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "k", nil, func(context.Context) (Entry, error) {
		return Entry{}, boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, backend.Len())
}

func TestGetOrCompute_ConcurrentComputeOnce(t *testing.T) {
	c := New(NewMemoryBackend(), Options{})
	var n int32
	compute := func(ctx context.Context) (Entry, error) {
		atomic.AddInt32(&n, 1)
		time.Sleep(20 * time.Millisecond)
		return Entry{Body: "shared"}, nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, _, err := c.GetOrCompute(context.Background(), "k", nil, compute)
			if err != nil || e.Body != "shared" {
				t.Errorf("unexpected: %v %q", err, e.Body)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, n)
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "responses.db")
	b, err := OpenSQLite(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()
	ctx := context.Background()

	_, ok, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entry := Entry{
		Body:      "<p>ok</p>",
		Results:   Snapshots([]taxonomy.Result{{Error: scriptErr}}),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, b.Set(ctx, "k", entry))
	entry.Body = "<p>newer</p>"
	require.NoError(t, b.Set(ctx, "k", entry))

	got, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "<p>newer</p>", got.Body)
	require.Len(t, got.Results, 1)
	require.Equal(t, "script", got.Results[0].Error.Attr("node_name"))
	require.True(t, got.ExpiresAt.Equal(entry.ExpiresAt))

	n, err := b.Purge(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnabled(t *testing.T) {
	require.True(t, Enabled(false, false, true))
	require.False(t, Enabled(true, false, true))
	require.False(t, Enabled(false, true, true))
	require.False(t, Enabled(false, false, false))
}
