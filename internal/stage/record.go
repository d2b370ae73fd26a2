package stage

import (
	"github.com/flarebyte/ampscribe/internal/sanitize"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Record is one document flowing through the pipeline.
// Using a struct ensures deterministic JSON field ordering.
type Record struct {
	Locator  string            `json:"locator"`
	RunID    string            `json:"-"`
	Body     string            `json:"body,omitempty"`
	Assets   *sanitize.Assets  `json:"assets,omitempty"`
	Results  []taxonomy.Result `json:"errors,omitempty"`
	Blocking bool              `json:"blocking,omitempty"`
	Degraded bool              `json:"degraded,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Cached   bool              `json:"cached,omitempty"`
	Error    *RecError         `json:"error,omitempty"`
}
