package sanitize

import (
	"sort"
	"sync"
)

// Stage rewrites the document in place and reports violations through c.
type Stage func(doc *Document, c *Context) error

var (
	stagesMu sync.RWMutex
	stages   = map[string]Stage{}
)

// DefaultStages is the built-in order: images are converted before the
// allowed-tag check sees them.
var DefaultStages = []string{"img", "script", "allowed-tags"}

// Register adds a stage under name, replacing any previous one.
func Register(name string, s Stage) {
	stagesMu.Lock()
	defer stagesMu.Unlock()
	stages[name] = s
}

// Lookup returns the stage registered under name.
func Lookup(name string) (Stage, error) {
	stagesMu.RLock()
	defer stagesMu.RUnlock()
	s, ok := stages[name]
	if !ok {
		return nil, ErrUnknownStage{name: name}
	}
	return s, nil
}

// Names lists registered stages.
func Names() []string {
	stagesMu.RLock()
	defer stagesMu.RUnlock()
	out := make([]string, 0, len(stages))
	for n := range stages {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ErrUnknownStage is returned when a stage is not registered.
type ErrUnknownStage struct{ name string }

func (e ErrUnknownStage) Error() string { return "unknown sanitizer stage: " + e.name }
