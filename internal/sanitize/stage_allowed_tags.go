package sanitize

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/flarebyte/ampscribe/internal/allowlist"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// builtinComponents ship with the runtime and need no extension script.
var builtinComponents = map[string]struct{}{
	"amp-img":    {},
	"amp-pixel":  {},
	"amp-layout": {},
}

func init() {
	Register("allowed-tags", sanitizeAllowedTags)
}

func sanitizeAllowedTags(doc *Document, c *Context) error {
	for _, n := range Elements(doc.Root) {
		if !Attached(n, doc.Root) {
			continue
		}
		specs, ok := c.Table.Lookup(n.Data)
		if !ok {
			if c.Report(tagError(n), n) {
				Detach(n)
			}
			continue
		}
		if ancestor := violatedAncestor(n, c.Table); ancestor != "" {
			e := taxonomy.Error{
				Code: taxonomy.CodeDisallowedDescendant,
				Attributes: map[string]any{
					"node_name":     n.Data,
					"parent_name":   ParentName(n),
					"ancestor_name": ancestor,
				},
			}
			if c.Report(e, n) {
				Detach(n)
				continue
			}
		}
		sanitizeAttributes(n, specs, c)
		requireComponent(n, c)
	}
	return nil
}

func tagError(n *html.Node) taxonomy.Error {
	return taxonomy.Error{
		Code: taxonomy.CodeDisallowedTag,
		Attributes: map[string]any{
			"node_name":       n.Data,
			"parent_name":     ParentName(n),
			"node_attributes": AttrMap(n),
		},
	}
}

func sanitizeAttributes(n *html.Node, specs []allowlist.Spec, c *Context) {
	var bad []string
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		if key == "style" && c.Args.AllowDirtyStyles {
			continue
		}
		if attributeAllowed(key, specs) {
			continue
		}
		bad = append(bad, key)
	}
	for _, key := range bad {
		e := taxonomy.Error{
			Code: taxonomy.CodeDisallowedAttribute,
			Attributes: map[string]any{
				"node_name":          key,
				"parent_name":        n.Data,
				"element_attributes": AttrMap(n),
			},
		}
		if c.Report(e, n) {
			removeQualifiedAttr(n, key)
		}
	}
}

func attributeAllowed(key string, specs []allowlist.Spec) bool {
	if allowlist.IsGlobalAttribute(key) {
		return true
	}
	for _, s := range specs {
		if s.AllowsAttribute(key) {
			return true
		}
	}
	return false
}

func removeQualifiedAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		k := a.Key
		if a.Namespace != "" {
			k = a.Namespace + ":" + a.Key
		}
		if k == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// violatedAncestor returns the nearest ancestor whose descendant list does
// not admit n.
func violatedAncestor(n *html.Node, table *allowlist.Table) string {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		specs, ok := table.Lookup(p.Data)
		if !ok {
			continue
		}
		if len(specs) == 0 {
			continue
		}
		admitted := false
		for _, s := range specs {
			if s.AllowsDescendant(n.Data) {
				admitted = true
				break
			}
		}
		if !admitted {
			return p.Data
		}
	}
	return ""
}

func requireComponent(n *html.Node, c *Context) {
	if !strings.HasPrefix(n.Data, "amp-") {
		return
	}
	if _, ok := builtinComponents[n.Data]; ok {
		return
	}
	c.AddScript(n.Data, AMPCDN+"v0/"+n.Data+"-0.1.js")
}
