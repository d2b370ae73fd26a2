package taxonomy

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/source"
)

type mapStore map[string]Status

func (m mapStore) Get(slug string) (Status, error) {
	if st, ok := m[slug]; ok {
		return st, nil
	}
	return StatusUnreviewed, nil
}

func (m mapStore) Set(slug string, st Status) error {
	m[slug] = st
	return nil
}

type brokenStore struct{}

func (brokenStore) Get(string) (Status, error) { return "", errors.New("disk on fire") }
func (brokenStore) Set(string, Status) error   { return errors.New("disk on fire") }

func scriptError(sources ...source.Source) Error {
	return Error{
		Code: CodeDisallowedTag,
		Attributes: map[string]any{
			"node_name":       "script",
			"parent_name":     "body",
			"node_attributes": map[string]any{},
		},
		Sources: sources,
	}
}

func TestSlug_IgnoresSourcesAndAttributeOrder(t *testing.T) {
	a := Error{Code: "disallowed_attribute", Attributes: map[string]any{}}
	a.Attributes["node_name"] = "onclick"
	a.Attributes["parent_name"] = "div"
	b := Error{Code: "disallowed_attribute", Attributes: map[string]any{}}
	b.Attributes["parent_name"] = "div"
	b.Attributes["node_name"] = "onclick"
	b.Sources = []source.Source{{Kind: source.KindPlugin, Name: "p"}}

	require.Equal(t, Slug(a), Slug(b))
	require.Len(t, Slug(a), 64)

	c := a
	c.Attributes = map[string]any{"node_name": "onload", "parent_name": "div"}
	require.NotEqual(t, Slug(a), Slug(c))
}

func TestError_JSONIsFlat(t *testing.T) {
	e := scriptError(source.Source{Kind: source.KindTheme, Name: "t"})
	b, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"disallowed_tag","node_name":"script","parent_name":"body","node_attributes":{},"sources":[{"type":"theme","name":"t"}]}`, string(b))

	var back Error
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, e.Code, back.Code)
	assert.Equal(t, "script", back.Attr("node_name"))
	require.Len(t, back.Sources, 1)
	assert.True(t, back.Sources[0].Equal(e.Sources[0]))
	assert.Equal(t, Slug(e), Slug(back))

	b, err = json.Marshal(Error{})
	require.NoError(t, err)
	require.JSONEq(t, `{"code":"unknown"}`, string(b))
}

func TestDecider_DefaultsToBlocking(t *testing.T) {
	results := &Results{}
	d := &Decider{Store: mapStore{}, Results: results}
	require.False(t, d.Decide(scriptError()))
	require.True(t, results.IsBlocking())
	require.Equal(t, 1, results.BlockingCount())
}

func TestDecider_AcceptedSlugIsSanitized(t *testing.T) {
	store := mapStore{}
	require.NoError(t, store.Set(Slug(scriptError()), StatusAccepted))
	results := &Results{}
	d := &Decider{Store: store, Results: results}
	require.True(t, d.Decide(scriptError(source.Source{Kind: source.KindPlugin, Name: "evil"})))
	require.False(t, results.IsBlocking())

	rejected := mapStore{Slug(scriptError()): StatusRejected}
	require.False(t, (&Decider{Store: rejected}).Evaluate(scriptError()))
}

func TestDecider_DebugIgnoresStoreButNotOverride(t *testing.T) {
	store := mapStore{Slug(scriptError()): StatusAccepted}
	d := &Decider{Store: store, Debug: true}
	require.False(t, d.Evaluate(scriptError()))

	d.Override = AutoAccept("amp_story")
	d.Context = DecisionContext{ContentType: "amp_story"}
	require.True(t, d.Evaluate(scriptError()))
	d.Context.ContentType = "post"
	require.False(t, d.Evaluate(scriptError()))
}

func TestDecider_StoreErrorMeansNoRecord(t *testing.T) {
	d := &Decider{Store: brokenStore{}, Logger: zap.NewNop()}
	require.False(t, d.Evaluate(scriptError()))
}

func TestDecider_AmendAndDefaultCode(t *testing.T) {
	results := &Results{}
	src := source.Source{Kind: source.KindPlugin, Name: "p"}
	d := &Decider{
		Results: results,
		Amend: func(e Error) Error {
			require.Empty(t, e.Sources)
			attrs := map[string]any{"extra": "x"}
			for k, v := range e.Attributes {
				attrs[k] = v
			}
			e.Attributes = attrs
			return e
		},
	}
	d.Decide(Error{Attributes: map[string]any{"node_name": "blink"}, Sources: []source.Source{src}})
	got := results.All()
	require.Len(t, got, 1)
	assert.Equal(t, CodeUnknown, got[0].Error.Code)
	assert.Equal(t, "x", got[0].Error.Attr("extra"))
	require.Len(t, got[0].Error.Sources, 1)
}

func TestChain(t *testing.T) {
	never := func(Error, DecisionContext, bool) bool { return false }
	o := Chain(AutoAccept("page"), never)
	require.False(t, o(Error{}, DecisionContext{ContentType: "page"}, false))
	o = Chain(never, AutoAccept("page"))
	require.True(t, o(Error{}, DecisionContext{ContentType: "page"}, false))
}

func TestIsBlocking(t *testing.T) {
	require.False(t, IsBlocking([]Result{{Error: Error{Code: "disallowed_tag"}, Sanitized: true}}))
	require.True(t, IsBlocking([]Result{
		{Error: Error{Code: "disallowed_tag"}, Sanitized: true},
		{Error: Error{Code: "disallowed_attribute"}, Sanitized: false},
	}))
	require.False(t, IsBlocking(nil))
}

func TestSummarize(t *testing.T) {
	errs := []Error{
		scriptError(source.Source{Kind: source.KindPlugin, Name: "b"}, source.Source{Kind: source.KindPlugin, Name: "a"}),
		scriptError(source.Source{Kind: source.KindTheme, Name: "t"}),
		{Code: CodeDisallowedAttribute, Attributes: map[string]any{"node_name": "onclick"}},
	}
	s := Summarize(errs)
	assert.Equal(t, map[string]int{"script": 2}, s.RemovedElements)
	assert.Equal(t, map[string]int{"onclick": 1}, s.RemovedAttributes)
	assert.Equal(t, map[string][]string{"plugin": {"a", "b"}, "theme": {"t"}}, s.SourcesInvalidOutput)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("accepted")
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, st)
	_, err = ParseStatus("maybe")
	require.Error(t, err)
}
