package validation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/net/html"

	"github.com/flarebyte/ampscribe/internal/sanitize"
	"github.com/flarebyte/ampscribe/internal/source"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// SummaryPrefix opens the machine-readable error comment.
const SummaryPrefix = "AMP_VALIDATION_ERRORS:"

// RuntimeURL is the AMP runtime script.
const RuntimeURL = sanitize.AMPCDN + "v0.js"

// Finalize strips source markers unless preserved and appends the error
// summary as the last child of the root element.
func Finalize(doc *sanitize.Document, results []taxonomy.Result, preserveMarkers bool) {
	if !preserveMarkers {
		source.StripMarkers(doc.Root)
	}
	doc.Container().AppendChild(&html.Node{Type: html.CommentNode, Data: SummaryComment(results)})
}

// SummaryComment is the comment data listing every error without sources.
// Each entry is the flat error object with its sanitized flag beside the
// attributes.
func SummaryComment(results []taxonomy.Result) string {
	out := make([]summaryEntry, len(results))
	for i, r := range results {
		out[i] = summaryEntry{Error: r.Error.WithoutSources(), Sanitized: r.Sanitized}
	}
	b, err := json.MarshalIndent(out, "", "\t")
	if err != nil {
		b = []byte("[]")
	}
	return source.EscapeComment(SummaryPrefix + string(b) + "\n")
}

type summaryEntry taxonomy.Result

func (s summaryEntry) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(s.Error)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	fields["sanitized"] = json.RawMessage(strconv.FormatBool(s.Sanitized))
	return json.Marshal(fields)
}

func (s *summaryEntry) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	var out summaryEntry
	if v, ok := fields["sanitized"]; ok {
		if err := json.Unmarshal(v, &out.Sanitized); err != nil {
			return fmt.Errorf("invalid sanitized: %w", err)
		}
		delete(fields, "sanitized")
	}
	rest, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(rest, &out.Error); err != nil {
		return err
	}
	*s = out
	return nil
}

// moveComponentScripts puts body component scripts into the head.
func moveComponentScripts(doc *sanitize.Document) {
	head, body := doc.Head(), doc.Body()
	if head == nil || body == nil {
		return
	}
	for _, n := range sanitize.Elements(body) {
		if n.Data != "script" {
			continue
		}
		if _, ok := sanitize.Attr(n, "custom-element"); !ok {
			continue
		}
		sanitize.Detach(n)
		head.AppendChild(n)
	}
}

// ensureRequiredMarkup adds the charset, viewport and canonical link a
// full document needs.
func ensureRequiredMarkup(doc *sanitize.Document, canonical string) {
	head := doc.Head()
	if head == nil {
		return
	}
	if !hasChild(head, "meta", func(n *html.Node) bool { _, ok := sanitize.Attr(n, "charset"); return ok }) {
		prepend(head, sanitize.NewElement("meta", html.Attribute{Key: "charset", Val: "utf-8"}))
	}
	if !hasChild(head, "meta", func(n *html.Node) bool { v, _ := sanitize.Attr(n, "name"); return v == "viewport" }) {
		viewport := sanitize.NewElement("meta",
			html.Attribute{Key: "name", Val: "viewport"},
			html.Attribute{Key: "content", Val: "width=device-width,minimum-scale=1"})
		insertAfterCharset(head, viewport)
	}
	if canonical != "" && !hasChild(head, "link", func(n *html.Node) bool { v, _ := sanitize.Attr(n, "rel"); return v == "canonical" }) {
		head.AppendChild(sanitize.NewElement("link",
			html.Attribute{Key: "rel", Val: "canonical"},
			html.Attribute{Key: "href", Val: canonical}))
	}
}

// injectScripts adds the runtime and every required component script that
// the head does not already load.
func injectScripts(doc *sanitize.Document, assets sanitize.Assets) {
	head := doc.Head()
	if head == nil {
		return
	}
	if !hasChild(head, "script", func(n *html.Node) bool { v, _ := sanitize.Attr(n, "src"); return v == RuntimeURL }) {
		head.AppendChild(sanitize.NewElement("script",
			html.Attribute{Key: "async"},
			html.Attribute{Key: "src", Val: RuntimeURL}))
	}
	for _, handle := range assets.Scripts.Handles() {
		url := assets.Scripts[handle]
		if url == "" {
			continue
		}
		loaded := hasChild(head, "script", func(n *html.Node) bool {
			ce, _ := sanitize.Attr(n, "custom-element")
			ct, _ := sanitize.Attr(n, "custom-template")
			return ce == handle || ct == handle
		})
		if loaded {
			continue
		}
		kind := "custom-element"
		if handle == "amp-mustache" {
			kind = "custom-template"
		}
		head.AppendChild(sanitize.NewElement("script",
			html.Attribute{Key: "async"},
			html.Attribute{Key: kind, Val: handle},
			html.Attribute{Key: "src", Val: url}))
	}
}

func hasChild(parent *html.Node, tag string, match func(*html.Node) bool) bool {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag && match(c) {
			return true
		}
	}
	return false
}

func prepend(parent, n *html.Node) {
	if parent.FirstChild == nil {
		parent.AppendChild(n)
		return
	}
	parent.InsertBefore(n, parent.FirstChild)
}

func insertAfterCharset(head, n *html.Node) {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "meta" {
			continue
		}
		if _, ok := sanitize.Attr(c, "charset"); ok {
			if c.NextSibling != nil {
				head.InsertBefore(n, c.NextSibling)
			} else {
				head.AppendChild(n)
			}
			return
		}
	}
	prepend(head, n)
}
