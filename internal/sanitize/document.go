package sanitize

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed response. Full documents are rooted at the html
// DocumentNode; fragments are parsed as the children of a detached body
// element and rendered without it.
type Document struct {
	Root     *html.Node
	Fragment bool
}

// LooksLikeDocument reports whether raw is a complete HTML document rather
// than a body fragment. Leading whitespace and comments are skipped.
func LooksLikeDocument(raw string) bool {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, "<!--") {
		end := strings.Index(s, "-->")
		if end < 0 {
			return false
		}
		s = strings.TrimSpace(s[end+3:])
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html")
}

// Parse builds a Document from raw markup.
func Parse(raw string) (*Document, error) {
	if LooksLikeDocument(raw) {
		root, err := html.Parse(strings.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return &Document{Root: root}, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(raw), body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return &Document{Root: body, Fragment: true}, nil
}

// Render serializes the document.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if !d.Fragment {
		if err := html.Render(&buf, d.Root); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// HTML returns the html element, or nil for fragments.
func (d *Document) HTML() *html.Node {
	if d.Fragment {
		return nil
	}
	return FindElement(d.Root, "html")
}

// Head returns the head element, or nil for fragments.
func (d *Document) Head() *html.Node {
	if d.Fragment {
		return nil
	}
	return FindElement(d.Root, "head")
}

// Body returns the body element; for fragments this is the container.
func (d *Document) Body() *html.Node {
	if d.Fragment {
		return d.Root
	}
	return FindElement(d.Root, "body")
}

// Container is where trailing nodes are appended: the html element of a
// full document, or the fragment container.
func (d *Document) Container() *html.Node {
	if h := d.HTML(); h != nil {
		return h
	}
	return d.Root
}
