package config

import "cuelang.org/go/cue"

// parseOutputSection extracts optional output.* fields.
func parseOutputSection(v cue.Value) Output {
	var o Output
	ov, ok := section(v, "output")
	if !ok {
		return o
	}
	o.HasOut = decodeString(ov, "out", &o.Out)
	o.HasPretty = decodeBool(ov, "pretty", &o.Pretty)
	o.HasLines = decodeBool(ov, "lines", &o.Lines)
	o.HasDir = decodeString(ov, "dir", &o.Dir)
	return o
}

// parseErrorsSection extracts optional errors.* fields.
func parseErrorsSection(v cue.Value) Errors {
	var e Errors
	ev, ok := section(v, "errors")
	if !ok {
		return e
	}
	e.HasMode = decodeString(ev, "mode", &e.Mode)
	e.HasEmbed = decodeBool(ev, "embedErrors", &e.EmbedErrors)
	return e
}

// parseWorkersSection extracts optional workers count.
func parseWorkersSection(v cue.Value) Workers {
	var w Workers
	w.HasCount = decodeInt(v, "workers", &w.Count)
	return w
}

// parseLoggingSection extracts optional logging.* fields.
func parseLoggingSection(v cue.Value) Logging {
	var l Logging
	if lv, ok := section(v, "logging"); ok {
		decodeString(lv, "level", &l.Level)
		decodeString(lv, "format", &l.Format)
	}
	return l
}
