package taxonomy

import (
	"sort"

	"github.com/flarebyte/ampscribe/internal/source"
)

// Result is a recorded error with its decision.
type Result struct {
	Error     Error `json:"error"`
	Sanitized bool  `json:"sanitized"`
}

// Results is the append-only list of a run's decisions.
type Results struct {
	items []Result
}

// Add records a decision.
func (r *Results) Add(res Result) { r.items = append(r.items, res) }

// All returns a copy of the recorded results in report order.
func (r *Results) All() []Result {
	if r == nil {
		return nil
	}
	return append([]Result(nil), r.items...)
}

// Errors returns the recorded errors in report order.
func (r *Results) Errors() []Error {
	if r == nil {
		return nil
	}
	out := make([]Error, len(r.items))
	for i, it := range r.items {
		out[i] = it.Error
	}
	return out
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}

// IsBlocking reports whether any error was left unsanitized.
func (r *Results) IsBlocking() bool { return IsBlocking(r.All()) }

// BlockingCount is the number of unsanitized errors.
func (r *Results) BlockingCount() int { return BlockingCount(r.All()) }

// IsBlocking reports whether any result has sanitized=false.
func IsBlocking(results []Result) bool { return BlockingCount(results) > 0 }

// BlockingCount counts results with sanitized=false.
func BlockingCount(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Sanitized {
			n++
		}
	}
	return n
}

// Summary aggregates errors for human review.
type Summary struct {
	RemovedElements      map[string]int      `json:"removed_elements"`
	RemovedAttributes    map[string]int      `json:"removed_attributes"`
	SourcesInvalidOutput map[string][]string `json:"sources_with_invalid_output"`
}

// Summarize counts removed element and attribute names and lists, per
// source kind, the names of code that produced invalid output.
func Summarize(errs []Error) Summary {
	s := Summary{
		RemovedElements:      map[string]int{},
		RemovedAttributes:    map[string]int{},
		SourcesInvalidOutput: map[string][]string{},
	}
	seen := map[string]map[string]struct{}{}
	for _, e := range errs {
		switch e.Code {
		case CodeDisallowedTag:
			if n := e.Attr("node_name"); n != "" {
				s.RemovedElements[n]++
			}
		case CodeDisallowedAttribute:
			if n := e.Attr("node_name"); n != "" {
				s.RemovedAttributes[n]++
			}
		}
		for _, src := range e.Sources {
			addSource(seen, src)
		}
	}
	for kind, names := range seen {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		s.SourcesInvalidOutput[kind] = list
	}
	return s
}

func addSource(seen map[string]map[string]struct{}, src source.Source) {
	if src.Kind == "" || src.Name == "" {
		return
	}
	k := string(src.Kind)
	if seen[k] == nil {
		seen[k] = map[string]struct{}{}
	}
	seen[k][src.Name] = struct{}{}
}
