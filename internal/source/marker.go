package source

import (
	"encoding/json"
	"regexp"
	"strings"
)

const markerName = "amp-source-stack"

// Marker is a parsed provenance comment.
type Marker struct {
	Source  Source
	Closing bool
}

var markerPattern = regexp.MustCompile(`(?s)^\s*(/)?amp-source-stack\s+(\{.+\})\s*$`)

// EscapeComment makes JSON safe to embed in an HTML comment. The "--"
// sequence is written as JSON unicode escapes so it decodes back unchanged.
func EscapeComment(s string) string {
	return strings.ReplaceAll(s, "--", `\u002d\u002d`)
}

// CommentData returns the comment body (without <!-- -->) for a marker.
func CommentData(src Source, closing bool) string {
	b, err := json.Marshal(src)
	if err != nil {
		b = []byte("{}")
	}
	prefix := ""
	if closing {
		prefix = "/"
	}
	return prefix + markerName + " " + EscapeComment(string(b))
}

// Comment returns the serialized marker comment.
func Comment(src Source, closing bool) string {
	return "<!--" + CommentData(src, closing) + "-->"
}

// Bracket wraps markup in an opening and closing marker for src.
func Bracket(src Source, markup string) string {
	return Comment(src, false) + markup + Comment(src, true)
}

// ParseComment parses comment data. Comments that are not markers, or whose
// payload is not valid JSON, return false.
func ParseComment(data string) (Marker, bool) {
	m := markerPattern.FindStringSubmatch(data)
	if m == nil {
		return Marker{}, false
	}
	var src Source
	if err := json.Unmarshal([]byte(m[2]), &src); err != nil {
		return Marker{}, false
	}
	return Marker{Source: src, Closing: m[1] == "/"}, true
}

var tagLike = regexp.MustCompile(`(?s)<.+?>`)

// LooksLikeMarkup reports whether s contains a tag-like substring.
func LooksLikeMarkup(s string) bool {
	return s != "" && tagLike.MatchString(s)
}
