// Package taxonomy classifies validation errors, derives their policy slug and
// decides whether each one is sanitized.
package taxonomy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/flarebyte/ampscribe/internal/source"
)

const (
	CodeDisallowedTag        = "disallowed_tag"
	CodeDisallowedAttribute  = "disallowed_attribute"
	CodeDisallowedDescendant = "disallowed_descendant"
	CodeUnknown              = "unknown"
)

// Error is a structural violation. Attributes describe the offending
// construct (node_name, parent_name, node_attributes, ...). Sources lists the
// renderers that produced it, outermost first.
type Error struct {
	Code       string
	Attributes map[string]any
	Sources    []source.Source
}

// WithoutSources returns a copy with Sources cleared.
func (e Error) WithoutSources() Error {
	e.Sources = nil
	return e
}

// Attr returns a string attribute, or "".
func (e Error) Attr(name string) string {
	s, _ := e.Attributes[name].(string)
	return s
}

// MarshalJSON writes a flat object: code, the attributes, then sources.
func (e Error) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Attributes)+2)
	for k, v := range e.Attributes {
		m[k] = v
	}
	code := e.Code
	if code == "" {
		code = CodeUnknown
	}
	m["code"] = code
	if len(e.Sources) > 0 {
		m["sources"] = e.Sources
	} else {
		delete(m, "sources")
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the flat object written by MarshalJSON.
func (e *Error) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Error
	for k, v := range raw {
		switch k {
		case "code":
			if err := json.Unmarshal(v, &out.Code); err != nil {
				return fmt.Errorf("invalid code: %w", err)
			}
		case "sources":
			if err := json.Unmarshal(v, &out.Sources); err != nil {
				return fmt.Errorf("invalid sources: %w", err)
			}
		default:
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			if out.Attributes == nil {
				out.Attributes = map[string]any{}
			}
			out.Attributes[k] = val
		}
	}
	*e = out
	return nil
}

// Slug is the policy identity of an error: a hash of its code and
// attributes. Sources never contribute, so the same construct emitted by
// different code shares one policy decision.
func Slug(e Error) string {
	b, err := json.Marshal(e.WithoutSources())
	if err != nil {
		b = []byte(e.Code)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
