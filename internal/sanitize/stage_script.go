package sanitize

import (
	"strings"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// AMPCDN is the origin of the runtime and component scripts.
const AMPCDN = "https://cdn.ampproject.org/"

func init() {
	Register("script", sanitizeScripts)
}

// sanitizeScripts keeps JSON-LD and runtime/component scripts and reports
// every other script as a disallowed tag.
func sanitizeScripts(doc *Document, c *Context) error {
	if c.Args.AllowDirtyScripts {
		return nil
	}
	for _, n := range Elements(doc.Root) {
		if n.Data != "script" || !Attached(n, doc.Root) {
			continue
		}
		if typ, _ := Attr(n, "type"); strings.EqualFold(typ, "application/ld+json") {
			continue
		}
		src, _ := Attr(n, "src")
		if strings.HasPrefix(src, AMPCDN) {
			if name, ok := Attr(n, "custom-element"); ok {
				c.AddScript(name, src)
			} else if name, ok := Attr(n, "custom-template"); ok {
				c.AddScript(name, src)
			}
			continue
		}
		e := taxonomy.Error{
			Code: taxonomy.CodeDisallowedTag,
			Attributes: map[string]any{
				"node_name":       n.Data,
				"parent_name":     ParentName(n),
				"node_attributes": AttrMap(n),
			},
		}
		if c.Report(e, n) {
			Detach(n)
		}
	}
	return nil
}
