package stage

import (
	"cmp"
	"slices"
	"strings"
)

// Error modes.
const (
	modeFailFast  = "fail-fast"
	modeKeepGoing = "keep-going"
)

// RecError is the failure embedded in a record when errors.embedErrors is set.
type RecError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func errorMode(meta *Meta) (mode string, embed bool) {
	mode = modeFailFast
	if meta != nil && meta.Errors != nil {
		if meta.Errors.Mode != "" {
			mode = meta.Errors.Mode
		}
		embed = meta.Errors.EmbedErrors
	}
	return
}

// cleanMessage collapses whitespace so messages stay on one line.
func cleanMessage(msg string) string {
	if s := strings.Join(strings.Fields(msg), " "); s != "" {
		return s
	}
	return "error"
}

// appendErrors adds errs with cleaned messages and keeps the list sorted.
func appendErrors(out *Envelope, errs []Error) {
	if len(errs) == 0 {
		return
	}
	for _, e := range errs {
		e.Message = cleanMessage(e.Message)
		out.Errors = append(out.Errors, e)
	}
	SortEnvelopeErrors(out)
}

// SortEnvelopeErrors orders errors by locator, then stage, then message.
func SortEnvelopeErrors(env *Envelope) {
	if env == nil {
		return
	}
	slices.SortFunc(env.Errors, func(a, b Error) int {
		return cmp.Or(
			cmp.Compare(a.Locator, b.Locator),
			cmp.Compare(a.Stage, b.Stage),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

func (e *ErrorsMeta) keepGoing() bool { return e != nil && e.Mode == modeKeepGoing }

// hidesRecordErrors reports whether per-record errors are left out of the
// printed output.
func (e *ErrorsMeta) hidesRecordErrors() bool { return e != nil && !e.EmbedErrors }
