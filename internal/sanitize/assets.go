package sanitize

import (
	"encoding/json"
	"sort"
	"strings"
)

// AssetMap maps a handle to its source URL; an empty URL serializes as true.
type AssetMap map[string]string

func (m AssetMap) add(handle, url string) {
	if handle == "" {
		return
	}
	if prev, ok := m[handle]; ok && prev != "" && url == "" {
		return
	}
	m[handle] = url
}

// Handles returns the handles in sorted order.
func (m AssetMap) Handles() []string {
	out := make([]string, 0, len(m))
	for h := range m {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

func (m AssetMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for h, url := range m {
		if url == "" {
			out[h] = true
			continue
		}
		out[h] = url
	}
	return json.Marshal(out)
}

func (m *AssetMap) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = AssetMap{}
	for h, v := range raw {
		s, _ := v.(string)
		(*m)[h] = s
	}
	return nil
}

// Assets are the scripts and styles the sanitized document needs.
type Assets struct {
	Scripts AssetMap `json:"scripts"`
	Styles  AssetMap `json:"styles"`
}

// EmbedHandler converts the embeds it owns and contributes their scripts.
type EmbedHandler interface {
	// Apply rewrites the handler's elements in doc and reports whether any
	// were found.
	Apply(doc *Document, args Args) bool
	Scripts() map[string]string
}

// StaticEmbed owns every element named Element (Handle when empty). Found
// elements have their width capped and require ScriptURL.
type StaticEmbed struct {
	Handle          string `json:"handle"`
	ScriptURL       string `json:"script_url"`
	Element         string `json:"element,omitempty"`
	ContentMaxWidth int    `json:"content_max_width,omitempty"`
}

func (s StaticEmbed) Apply(doc *Document, args Args) bool {
	tag := s.Element
	if tag == "" {
		tag = s.Handle
	}
	tag = strings.ToLower(tag)
	maxWidth := s.ContentMaxWidth
	if maxWidth <= 0 {
		maxWidth = args.ContentMaxWidth
	}
	found := false
	for _, n := range Elements(doc.Root) {
		if n.Data != tag {
			continue
		}
		found = true
		capDimensions(n, maxWidth)
	}
	return found
}

func (s StaticEmbed) Scripts() map[string]string {
	return map[string]string{s.Handle: s.ScriptURL}
}
