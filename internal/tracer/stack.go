package tracer

import "github.com/flarebyte/ampscribe/internal/source"

// Stack is the LIFO of sources for renderers currently running.
type Stack struct {
	items []source.Source
}

// Push opens a renderer scope.
func (s *Stack) Push(src source.Source) { s.items = append(s.items, src) }

// Pop closes the innermost scope. Popping an empty stack is a no-op.
func (s *Stack) Pop() (source.Source, bool) {
	if len(s.items) == 0 {
		return source.Source{}, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

// Top returns the innermost source without removing it.
func (s *Stack) Top() (source.Source, bool) {
	if len(s.items) == 0 {
		return source.Source{}, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack) Len() int { return len(s.items) }

// Snapshot copies the current stack, outermost first.
func (s *Stack) Snapshot() []source.Source {
	return append([]source.Source(nil), s.items...)
}
