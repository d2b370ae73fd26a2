// Package source identifies the code responsible for a fragment of generated
// markup and encodes that identity as in-stream provenance markers.
package source

import "reflect"

// Kind classifies where a renderer is declared.
type Kind string

const (
	KindCore     Kind = "core"
	KindTheme    Kind = "theme"
	KindPlugin   Kind = "plugin"
	KindMUPlugin Kind = "mu-plugin"
	KindUnknown  Kind = "unknown"
)

// Source is a provenance record. Field order is stable so marker JSON is
// deterministic.
type Source struct {
	Kind              Kind           `json:"type,omitempty"`
	Name              string         `json:"name,omitempty"`
	Function          string         `json:"function,omitempty"`
	Hook              string         `json:"hook,omitempty"`
	Filter            bool           `json:"filter,omitempty"`
	Shortcode         string         `json:"shortcode,omitempty"`
	WidgetID          string         `json:"widget_id,omitempty"`
	BlockName         string         `json:"block_name,omitempty"`
	BlockContentIndex *int           `json:"block_content_index,omitempty"`
	BlockAttrs        map[string]any `json:"block_attrs,omitempty"`
	PostID            *int           `json:"post_id,omitempty"`
	PostType          string         `json:"post_type,omitempty"`
	Handle            string         `json:"handle,omitempty"`

	// Sources lists the other callbacks registered on a filter hook.
	Sources []Source `json:"sources,omitempty"`
}

// Equal reports structural equality; pointer fields compare by value.
func (s Source) Equal(o Source) bool {
	return s.Kind == o.Kind &&
		s.Name == o.Name &&
		s.Function == o.Function &&
		s.Hook == o.Hook &&
		s.Filter == o.Filter &&
		s.Shortcode == o.Shortcode &&
		s.WidgetID == o.WidgetID &&
		s.BlockName == o.BlockName &&
		intPtrEqual(s.BlockContentIndex, o.BlockContentIndex) &&
		reflect.DeepEqual(s.BlockAttrs, o.BlockAttrs) &&
		intPtrEqual(s.PostID, o.PostID) &&
		s.PostType == o.PostType &&
		s.Handle == o.Handle &&
		EqualStacks(s.Sources, o.Sources)
}

// IsZero reports whether no field is set.
func (s Source) IsZero() bool { return s.Equal(Source{}) }

// Int returns a pointer to v, for the optional integer fields.
func Int(v int) *int { return &v }

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// EqualStacks compares two source stacks element-wise.
func EqualStacks(a, b []Source) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
