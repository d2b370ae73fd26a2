package sanitize

import (
	"strconv"

	"golang.org/x/net/html"
)

func init() {
	Register("img", sanitizeImages)
}

// sanitizeImages converts img to amp-img. Images inside noscript are the
// fallback and stay as they are.
func sanitizeImages(doc *Document, c *Context) error {
	for _, n := range Elements(doc.Root) {
		if n.Data != "img" || insideNoscript(n) {
			continue
		}
		img := NewElement("amp-img")
		for _, a := range n.Attr {
			img.Attr = append(img.Attr, html.Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val})
		}
		if capDimensions(img, c.Args.ContentMaxWidth) {
			SetAttr(img, "layout", "intrinsic")
		} else {
			RemoveAttr(img, "width")
			RemoveAttr(img, "height")
			SetAttr(img, "layout", "fill")
		}
		n.Parent.InsertBefore(img, n)
		Detach(n)
	}
	return nil
}

func insideNoscript(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "noscript" {
			return true
		}
	}
	return false
}

// capDimensions scales width and height down to maxWidth, keeping the ratio. It
// reports whether n has usable dimensions.
func capDimensions(n *html.Node, maxWidth int) bool {
	w, okW := dimension(n, "width")
	h, okH := dimension(n, "height")
	if !okW || !okH {
		return false
	}
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
		SetAttr(n, "width", strconv.Itoa(w))
		SetAttr(n, "height", strconv.Itoa(h))
	}
	return true
}

func dimension(n *html.Node, key string) (int, bool) {
	v, ok := Attr(n, key)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, false
	}
	return i, true
}
