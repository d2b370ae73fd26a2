package tracer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/flarebyte/ampscribe/internal/source"
)

// Decorate brackets a filter's return value when it is a markup string. The
// source names the filter hook, the post being rendered and the callbacks
// registered on that hook.
func (t *Tracer) Decorate(value any, hook string, post *Post) any {
	s, ok := value.(string)
	if !ok || !source.LooksLikeMarkup(s) {
		return value
	}
	src := source.Source{Hook: hook, Filter: true}
	if post != nil {
		src.PostID = source.Int(post.ID)
		src.PostType = post.Type
	}
	if hs := t.hookSources[hook]; len(hs) > 0 {
		src.Sources = append([]source.Source(nil), hs...)
	}
	return source.Bracket(src, s)
}

// DecorateShortcode brackets shortcode output with the handler's source.
// Output is returned unchanged when the handler cannot be resolved.
func (t *Tracer) DecorateShortcode(output, tag string, handler any) string {
	if handler == nil {
		return output
	}
	src, ok := t.registry.Resolve(handler)
	if !ok {
		return output
	}
	src.Shortcode = tag
	return source.Bracket(src, output)
}

// BlockRegistry exposes the host's registered content block types.
type BlockRegistry interface {
	// RenderCallback returns the server-side renderer of a dynamic block.
	RenderCallback(name string) (callable any, dynamic bool)
}

var blockDelimiter = regexp.MustCompile(`(?s)<!--\s+(?P<closing>/)?wp:(?P<name>\S+)(?:\s+(?P<attributes>\{.*?\}))?\s+(?P<selfclosing>/)?-->`)

// AddBlockComments inserts markers around the block delimiter comments in
// serialized post content. Opening delimiters get an increasing
// block_content_index; self-closing blocks get both markers at once. Dynamic
// blocks carry the source of their render callback.
func (t *Tracer) AddBlockComments(content string, post *Post, blocks BlockRegistry) string {
	t.blockIndex = 0
	idx := map[string]int{}
	for i, name := range blockDelimiter.SubexpNames() {
		if name != "" {
			idx[name] = i
		}
	}
	return blockDelimiter.ReplaceAllStringFunc(content, func(match string) string {
		m := blockDelimiter.FindStringSubmatch(match)
		closing := m[idx["closing"]] != ""
		selfClosing := m[idx["selfclosing"]] != ""

		src := source.Source{BlockName: m[idx["name"]]}
		if post != nil {
			src.PostID = source.Int(post.ID)
		}
		if !closing {
			src.BlockContentIndex = source.Int(t.blockIndex)
			t.blockIndex++
		}
		if !strings.Contains(src.BlockName, "/") {
			src.BlockName = "core/" + src.BlockName
		}
		if attrs := m[idx["attributes"]]; attrs != "" {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(attrs), &parsed); err == nil && len(parsed) > 0 {
				src.BlockAttrs = parsed
			}
		}
		if blocks != nil {
			if cb, dynamic := blocks.RenderCallback(src.BlockName); dynamic && cb != nil {
				if cbSrc, ok := t.registry.Resolve(cb); ok {
					src.Kind = cbSrc.Kind
					src.Name = cbSrc.Name
					src.Function = cbSrc.Function
				}
			}
		}

		if closing {
			return match + source.Comment(src, true)
		}
		out := source.Comment(src, false) + match
		if selfClosing {
			src.BlockContentIndex = nil
			out += source.Comment(src, true)
		}
		return out
	})
}
