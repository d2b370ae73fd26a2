package tracer

import (
	"bytes"
	"errors"
	"io"
)

var (
	// ErrNotCapturing is returned when writing or closing with no open scope.
	ErrNotCapturing = errors.New("output capture not active")
	// ErrCaptureActive is returned by Begin when a capture is already open.
	ErrCaptureActive = errors.New("output capture already active")
)

// Finalizer transforms the captured content of a scope when it closes.
type Finalizer func(captured string) string

type scope struct {
	buf      bytes.Buffer
	dest     io.Writer
	finalize Finalizer
}

// Output is a request-scoped stack of capture scopes. Writes go to the
// innermost scope; closing a scope runs its finalizer and forwards the result
// to the writer the scope was opened for. While any finalizer runs, new nested
// scopes are refused.
type Output struct {
	scopes     []*scope
	finalizing int
	closed     bool
}

// NewOutput returns an idle capture.
func NewOutput() *Output { return &Output{} }

// Begin opens the top-level capture. The finalized document is written to
// dest by Finish.
func (o *Output) Begin(dest io.Writer, finalize Finalizer) error {
	if len(o.scopes) > 0 {
		return ErrCaptureActive
	}
	o.closed = false
	o.scopes = append(o.scopes, &scope{dest: dest, finalize: finalize})
	return nil
}

// Capturing reports whether a top-level capture is open.
func (o *Output) Capturing() bool { return len(o.scopes) > 0 && !o.closed }

// Finalizing reports whether a finalizer is running.
func (o *Output) Finalizing() bool { return o.finalizing > 0 }

// Depth is the number of open scopes, top-level included.
func (o *Output) Depth() int { return len(o.scopes) }

// Start opens a nested scope whose finalized content goes to dest. It returns
// false, opening nothing, when there is no top-level capture or when called
// from inside a finalizer.
func (o *Output) Start(dest io.Writer, finalize Finalizer) bool {
	if !o.Capturing() || o.finalizing > 0 {
		return false
	}
	o.scopes = append(o.scopes, &scope{dest: dest, finalize: finalize})
	return true
}

// End closes the innermost nested scope.
func (o *Output) End() error {
	if len(o.scopes) < 2 {
		return ErrNotCapturing
	}
	s := o.pop()
	return o.flush(s)
}

// Finish closes every remaining scope, the top-level one last.
func (o *Output) Finish() error {
	if len(o.scopes) == 0 {
		return ErrNotCapturing
	}
	var first error
	for len(o.scopes) > 0 {
		if err := o.flush(o.pop()); err != nil && first == nil {
			first = err
		}
	}
	o.closed = true
	return first
}

// Write appends to the innermost scope.
func (o *Output) Write(p []byte) (int, error) {
	if len(o.scopes) == 0 {
		return 0, ErrNotCapturing
	}
	return o.scopes[len(o.scopes)-1].buf.Write(p)
}

func (o *Output) pop() *scope {
	s := o.scopes[len(o.scopes)-1]
	o.scopes = o.scopes[:len(o.scopes)-1]
	return s
}

func (o *Output) flush(s *scope) error {
	out := s.buf.String()
	if s.finalize != nil {
		o.finalizing++
		out = s.finalize(out)
		o.finalizing--
	}
	if s.dest == nil {
		return nil
	}
	_, err := io.WriteString(s.dest, out)
	return err
}
