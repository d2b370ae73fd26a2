package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flarebyte/ampscribe/internal/policy"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Document is the per-document slice of a run that a report needs.
type Document struct {
	Locator  string            `json:"locator"`
	Blocking bool              `json:"blocking,omitempty"`
	Degraded bool              `json:"degraded,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Cached   bool              `json:"cached,omitempty"`
	Results  []taxonomy.Result `json:"errors,omitempty"`
}

// Run is the subset of a run envelope read back from its JSON output.
type Run struct {
	Records []Document `json:"records"`
	Meta    *struct {
		Summary  *taxonomy.Summary `json:"summary,omitempty"`
		Blocking int               `json:"blocking,omitempty"`
	} `json:"meta,omitempty"`
}

// Render draws the documents table, then removed names and sources.
func (r Run) Render(color bool) string {
	var b strings.Builder
	rows := make([][]string, 0, len(r.Records))
	for _, d := range r.Records {
		unsanitized := taxonomy.BlockingCount(d.Results)
		status := "ok"
		switch {
		case d.Redirect != "":
			status = "redirect"
		case d.Degraded:
			status = "degraded"
		case d.Blocking:
			status = "blocking"
		}
		rows = append(rows, []string{
			d.Locator,
			strconv.Itoa(len(d.Results)),
			strconv.Itoa(unsanitized),
			colorize(status, !d.Blocking, color),
		})
	}
	b.WriteString(RenderTable([]string{"Document", "Errors", "Unsanitized", "Status"}, rows, []ColumnAlignment{AlignLeft, AlignRight, AlignRight, AlignLeft}))
	b.WriteString("\n")

	if r.Meta == nil || r.Meta.Summary == nil {
		return b.String()
	}
	s := r.Meta.Summary
	if len(s.RemovedElements) > 0 {
		b.WriteString(RenderTable([]string{"Removed element", "Count"}, countRows(s.RemovedElements), []ColumnAlignment{AlignLeft, AlignRight}))
		b.WriteString("\n")
	}
	if len(s.RemovedAttributes) > 0 {
		b.WriteString(RenderTable([]string{"Removed attribute", "Count"}, countRows(s.RemovedAttributes), []ColumnAlignment{AlignLeft, AlignRight}))
		b.WriteString("\n")
	}
	if len(s.SourcesInvalidOutput) > 0 {
		kinds := make([]string, 0, len(s.SourcesInvalidOutput))
		for k := range s.SourcesInvalidOutput {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		srcRows := make([][]string, 0, len(kinds))
		for _, k := range kinds {
			srcRows = append(srcRows, []string{k, strings.Join(s.SourcesInvalidOutput[k], ", ")})
		}
		b.WriteString(RenderTable([]string{"Source type", "Names"}, srcRows, nil))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "blocking documents: %d\n", r.Meta.Blocking)
	return b.String()
}

func countRows(m map[string]int) [][]string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if m[names[i]] != m[names[j]] {
			return m[names[i]] > m[names[j]]
		}
		return names[i] < names[j]
	})
	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, strconv.Itoa(m[n])})
	}
	return rows
}

// Policies renders stored decisions sorted by slug.
func Policies(records map[string]policy.Record, color bool) string {
	slugs := make([]string, 0, len(records))
	for s := range records {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	rows := make([][]string, 0, len(slugs))
	for _, s := range slugs {
		r := records[s]
		rows = append(rows, []string{s, colorize(string(r.Status), r.Status == taxonomy.StatusAccepted, color), r.Code})
	}
	return RenderTable([]string{"Slug", "Status", "Code"}, rows, nil)
}
