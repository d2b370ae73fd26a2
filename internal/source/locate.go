package source

import "golang.org/x/net/html"

// Locate reconstructs the source stack that was open when node was emitted
// by replaying every marker comment that precedes it in document order.
// Unbalanced closing markers are ignored so depth never goes negative.
func Locate(node *html.Node) []Source {
	if node == nil {
		return nil
	}
	root := node
	for root.Parent != nil {
		root = root.Parent
	}
	var stack []Source
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n == node {
			return true
		}
		if n.Type == html.CommentNode {
			stack = replay(stack, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return stack
}

func replay(stack []Source, data string) []Source {
	m, ok := ParseComment(data)
	if !ok {
		return stack
	}
	if m.Closing {
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
		return stack
	}
	return append(stack, m.Source)
}

// StripMarkers removes every marker comment below root and returns how many
// were removed.
func StripMarkers(root *html.Node) int {
	var found []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			if _, ok := ParseComment(n.Data); ok {
				found = append(found, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	for _, n := range found {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(found)
}

// Balance counts opening and closing markers below root and reports the
// lowest depth reached while replaying them in order.
type Balance struct {
	Open     int
	Close    int
	MinDepth int
}

// Balanced reports whether opens and closes match without going negative.
func (b Balance) Balanced() bool { return b.Open == b.Close && b.MinDepth >= 0 }

// MeasureBalance scans markers below root in document order.
func MeasureBalance(root *html.Node) Balance {
	var b Balance
	depth := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode {
			if m, ok := ParseComment(n.Data); ok {
				if m.Closing {
					b.Close++
					depth--
				} else {
					b.Open++
					depth++
				}
				if depth < b.MinDepth {
					b.MinDepth = depth
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return b
}
