package config

import (
	"fmt"

	"cuelang.org/go/cue"
)

// parsePolicySection extracts optional policy.* fields.
func parsePolicySection(v cue.Value) Policy {
	var p Policy
	pv, ok := section(v, "policy")
	if !ok {
		return p
	}
	p.HasPath = decodeString(pv, "path", &p.Path)
	decodeStrings(pv, "autoAcceptContentTypes", &p.AutoAcceptContentTypes)
	if ov, ok := section(pv, "override"); ok {
		p.Override.HasInline = decodeString(ov, "inline", &p.Override.Inline)
		p.Override.HasTimeout = decodeInt(ov, "timeoutMs", &p.Override.TimeoutMs)
	}
	return p
}

// parseCacheSection extracts optional cache.* fields.
func parseCacheSection(v cue.Value) Cache {
	var c Cache
	cv, ok := section(v, "cache")
	if !ok {
		return c
	}
	c.HasEnabled = decodeBool(cv, "enabled", &c.Enabled)
	c.HasPath = decodeString(cv, "path", &c.Path)
	c.HasTTLHours = decodeInt(cv, "ttlHours", &c.TTLHours)
	decodeString(cv, "version", &c.Version)
	return c
}

// parseAllowlistSection extracts optional allowlist.path.
func parseAllowlistSection(v cue.Value) Allowlist {
	var a Allowlist
	if av, ok := section(v, "allowlist"); ok {
		a.HasPath = decodeString(av, "path", &a.Path)
	}
	return a
}

// parseEmbedsSection decodes the embeds list; every entry needs a handle
// and a script URL.
func parseEmbedsSection(v cue.Value) ([]Embed, error) {
	ev, ok := section(v, "embeds")
	if !ok {
		return nil, nil
	}
	if ev.Kind() != cue.ListKind {
		return nil, fmt.Errorf("invalid type for field: embeds (expected list)")
	}
	var embeds []Embed
	if err := ev.Decode(&embeds); err != nil {
		return nil, fmt.Errorf("invalid value for embeds: %v", err)
	}
	for i, e := range embeds {
		if e.Handle == "" || e.ScriptURL == "" {
			return nil, fmt.Errorf("invalid embeds[%d]: handle and scriptURL are required", i)
		}
	}
	return embeds, nil
}
