package sanitize

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/flarebyte/ampscribe/internal/policy"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

const evil = `<script>evil()</script><p>ok</p>`

func TestSanitize_RemovesUnreviewedScript(t *testing.T) {
	p := &Pipeline{}
	res, err := p.Sanitize(evil)
	require.NoError(t, err)
	require.Equal(t, `<p>ok</p>`, res.Body)
	require.Len(t, res.Results, 1)
	got := res.Results[0]
	require.False(t, got.Sanitized)
	require.Equal(t, taxonomy.CodeDisallowedTag, got.Error.Code)
	require.Equal(t, "script", got.Error.Attr("node_name"))
	require.Equal(t, "body", got.Error.Attr("parent_name"))
	require.True(t, res.Blocking())
}

func TestSanitize_DebugKeepsScript(t *testing.T) {
	p := &Pipeline{Args: Args{Debug: true}}
	res, err := p.Sanitize(evil)
	require.NoError(t, err)
	require.Equal(t, evil, res.Body)
	require.Len(t, res.Results, 1)
	require.False(t, res.Results[0].Sanitized)
}

func TestSanitize_AcceptedSlugIsRemovedButNotBlocking(t *testing.T) {
	store := policy.NewMemoryStore()
	slug := taxonomy.Slug(taxonomy.Error{
		Code: taxonomy.CodeDisallowedTag,
		Attributes: map[string]any{
			"node_name":       "script",
			"parent_name":     "body",
			"node_attributes": map[string]any{},
		},
	})
	require.NoError(t, store.Set(slug, taxonomy.StatusAccepted))

	d := &taxonomy.Decider{Store: store}
	p := &Pipeline{Decide: func(e *taxonomy.Error, _ *html.Node) bool { return d.Decide(*e) }}
	res, err := p.Sanitize(evil)
	require.NoError(t, err)
	require.Equal(t, `<p>ok</p>`, res.Body)
	require.Len(t, res.Results, 1)
	require.True(t, res.Results[0].Sanitized)
	require.False(t, res.Blocking())
}

func TestSanitize_Idempotent(t *testing.T) {
	raw := `<!doctype html><html><head><title>t</title></head><body>` +
		`<img src="a.jpg" width="1200" height="600">` +
		`<div style="color:red" onclick="x()">hi<marquee>m</marquee></div>` +
		`<script src="https://example.com/a.js"></script></body></html>`
	p := &Pipeline{Args: Args{ContentMaxWidth: 600}}
	first, err := p.Sanitize(raw)
	require.NoError(t, err)
	require.NotEmpty(t, first.Results)
	require.Contains(t, first.Body, `<amp-img src="a.jpg" width="600" height="300" layout="intrinsic"></amp-img>`)
	require.NotContains(t, first.Body, "marquee")
	require.NotContains(t, first.Body, "onclick")

	second, err := p.Sanitize(first.Body)
	require.NoError(t, err)
	require.Empty(t, second.Results)
	require.Equal(t, first.Body, second.Body)
}

func TestImageStage_CapsWidth(t *testing.T) {
	p := &Pipeline{Args: Args{ContentMaxWidth: 600}}
	res, err := p.Sanitize(`<p><img src="a.jpg" width="1200" height="600" alt="x"></p>`)
	require.NoError(t, err)
	require.Equal(t, `<p><amp-img src="a.jpg" width="600" height="300" alt="x" layout="intrinsic"></amp-img></p>`, res.Body)
	require.Empty(t, res.Results)

	res, err = p.Sanitize(`<img src="b.jpg">`)
	require.NoError(t, err)
	require.Equal(t, `<amp-img src="b.jpg" layout="fill"></amp-img>`, res.Body)
}

func TestAllowedTags_Descendants(t *testing.T) {
	res, err := (&Pipeline{}).Sanitize(`<button><div>x</div></button>`)
	require.NoError(t, err)
	require.Equal(t, `<button></button>`, res.Body)
	require.Len(t, res.Results, 1)
	e := res.Results[0].Error
	require.Equal(t, taxonomy.CodeDisallowedDescendant, e.Code)
	require.Equal(t, "button", e.Attr("ancestor_name"))
}

func TestAllowedTags_Attributes(t *testing.T) {
	res, err := (&Pipeline{}).Sanitize(`<p class="a" style="color:red" data-x="1">t</p>`)
	require.NoError(t, err)
	require.Equal(t, `<p class="a" data-x="1">t</p>`, res.Body)
	require.Len(t, res.Results, 1)
	e := res.Results[0].Error
	require.Equal(t, taxonomy.CodeDisallowedAttribute, e.Code)
	require.Equal(t, "style", e.Attr("node_name"))
	require.Equal(t, "p", e.Attr("parent_name"))

	res, err = (&Pipeline{Args: Args{AllowDirtyStyles: true}}).Sanitize(`<p style="color:red">t</p>`)
	require.NoError(t, err)
	require.Empty(t, res.Results)
}

func TestStages_RegisterComponentScripts(t *testing.T) {
	raw := `<script async custom-element="amp-bind" src="https://cdn.ampproject.org/v0/amp-bind-0.1.js"></script>` +
		`<amp-carousel width="4" height="3" layout="responsive"></amp-carousel>` +
		`<script type="application/ld+json">{}</script>`
	res, err := (&Pipeline{}).Sanitize(raw)
	require.NoError(t, err)
	require.Empty(t, res.Results)
	require.Equal(t, "https://cdn.ampproject.org/v0/amp-bind-0.1.js", res.Assets.Scripts["amp-bind"])
	require.Equal(t, "https://cdn.ampproject.org/v0/amp-carousel-0.1.js", res.Assets.Scripts["amp-carousel"])
	require.Equal(t, []string{"amp-bind", "amp-carousel"}, res.Assets.Scripts.Handles())
}

func TestStaticEmbed(t *testing.T) {
	embed := StaticEmbed{Handle: "amp-youtube", ScriptURL: AMPCDN + "v0/amp-youtube-0.1.js", ContentMaxWidth: 640}
	p := &Pipeline{Embeds: []EmbedHandler{embed}}
	res, err := p.Sanitize(`<amp-youtube data-videoid="x" width="1280" height="720" layout="responsive"></amp-youtube>`)
	require.NoError(t, err)
	require.Contains(t, res.Body, `width="640" height="360"`)
	require.Equal(t, AMPCDN+"v0/amp-youtube-0.1.js", res.Assets.Scripts["amp-youtube"])

	res, err = p.Sanitize(`<p>none</p>`)
	require.NoError(t, err)
	require.Empty(t, res.Assets.Scripts)
}

func TestDecisionSeesAttachedNode(t *testing.T) {
	var parents []string
	p := &Pipeline{Decide: func(e *taxonomy.Error, n *html.Node) bool {
		parents = append(parents, ParentName(n))
		return false
	}}
	_, err := p.Sanitize(`<div><marquee>x</marquee></div>`)
	require.NoError(t, err)
	require.Equal(t, []string{"div"}, parents)
}

func TestUnknownStage(t *testing.T) {
	_, err := (&Pipeline{Stages: []string{"img", "nope"}}).Sanitize(`<p>x</p>`)
	var unknown ErrUnknownStage
	require.True(t, errors.As(err, &unknown))
	require.EqualError(t, err, "unknown sanitizer stage: nope")
}

func TestAssetMapJSON(t *testing.T) {
	b, err := json.Marshal(AssetMap{"a": "", "b": "https://x/b.js"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":true,"b":"https://x/b.js"}`, string(b))

	var back AssetMap
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, AssetMap{"a": "", "b": "https://x/b.js"}, back)
}

func TestLooksLikeDocument(t *testing.T) {
	cases := map[string]bool{
		"<!DOCTYPE html><html></html>":    true,
		"  <html lang=en>":                true,
		"<!-- c --><!doctype html>":       true,
		"<p>frag</p>":                     false,
		"<!-- unterminated <html>":        false,
		"<!--amp-source-stack {}--><div>": false,
	}
	for in, want := range cases {
		require.Equal(t, want, LooksLikeDocument(in), in)
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc, err := Parse(`<!doctype html><html><head></head><body><p>x</p></body></html>`)
	require.NoError(t, err)
	require.False(t, doc.Fragment)
	require.Equal(t, "html", doc.HTML().Data)
	require.Equal(t, "head", doc.Head().Data)
	require.Equal(t, "body", doc.Body().Data)
	require.Same(t, doc.HTML(), doc.Container())

	frag, err := Parse(`<p>x</p>`)
	require.NoError(t, err)
	require.True(t, frag.Fragment)
	require.Nil(t, frag.Head())
	require.Same(t, frag.Root, frag.Body())
	out, err := frag.Render()
	require.NoError(t, err)
	require.Equal(t, `<p>x</p>`, out)
}
