package config

import "cuelang.org/go/cue"

// parseDiscoverySection extracts optional discovery.* fields.
func parseDiscoverySection(v cue.Value) Discovery {
	var d Discovery
	dv, ok := section(v, "discovery")
	if !ok {
		return d
	}
	d.HasRoot = decodeString(dv, "root", &d.Root)
	d.HasNoGitignore = decodeBool(dv, "noGitignore", &d.NoGitignore)
	d.HasExtensions = decodeStrings(dv, "extensions", &d.Extensions)
	return d
}

// parsePipelineSection extracts optional pipeline.* fields.
func parsePipelineSection(v cue.Value) Pipeline {
	var p Pipeline
	pv, ok := section(v, "pipeline")
	if !ok {
		return p
	}
	p.HasStages = decodeStrings(pv, "stages", &p.Stages)
	p.HasContentMaxWidth = decodeInt(pv, "contentMaxWidth", &p.ContentMaxWidth)
	p.HasAllowDirtyStyles = decodeBool(pv, "allowDirtyStyles", &p.AllowDirtyStyles)
	p.HasAllowDirtyScripts = decodeBool(pv, "allowDirtyScripts", &p.AllowDirtyScripts)
	return p
}

// parseValidationSection extracts optional validation.* fields.
func parseValidationSection(v cue.Value) Validation {
	var val Validation
	vv, ok := section(v, "validation")
	if !ok {
		return val
	}
	val.HasLocateSources = decodeBool(vv, "locateSources", &val.LocateSources)
	val.HasDebug = decodeBool(vv, "debug", &val.Debug)
	val.HasPreserve = decodeBool(vv, "preserveSourceComments", &val.PreserveSourceComments)
	val.HasMode = decodeString(vv, "mode", &val.Mode)
	val.HasContentType = decodeString(vv, "contentType", &val.ContentType)
	val.HasCurrentURL = decodeString(vv, "currentURL", &val.CurrentURL)
	return val
}

// parseSourcesSection extracts optional sources.* roots.
func parseSourcesSection(v cue.Value) Sources {
	var s Sources
	sv, ok := section(v, "sources")
	if !ok {
		return s
	}
	decodeString(sv, "pluginDir", &s.PluginDir)
	decodeString(sv, "themeDir", &s.ThemeDir)
	decodeString(sv, "muPluginDir", &s.MuPluginDir)
	decodeString(sv, "coreDir", &s.CoreDir)
	return s
}
