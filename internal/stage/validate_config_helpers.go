package stage

import "github.com/flarebyte/ampscribe/internal/config"

const defaultCacheTTLHours = 30 * 24

// applyConfigToMeta mutates out.Meta to reflect the parsed config. Sections
// absent from the config leave the corresponding meta nil.
func applyConfigToMeta(out *Envelope, cfg config.Config) {
	if out.Meta == nil {
		out.Meta = &Meta{}
	}
	out.Meta.Config = &ConfigMeta{ConfigVersion: cfg.ConfigVersion, Action: cfg.Action}
	out.Meta.ConfigPath = "" // do not persist configPath in output

	applyDiscoveryMeta(out, cfg)
	applyPipelineMeta(out, cfg)
	applyValidationMeta(out, cfg)
	applyPolicyMeta(out, cfg)
	applyCacheMeta(out, cfg)
	applyOutputMeta(out, cfg)
	applyErrorsMeta(out, cfg)

	if s := cfg.Sources; s != (config.Sources{}) {
		out.Meta.Sources = &SourcesMeta{PluginDir: s.PluginDir, ThemeDir: s.ThemeDir, MuPluginDir: s.MuPluginDir, CoreDir: s.CoreDir}
	}
	if cfg.Allowlist.HasPath {
		out.Meta.AllowlistPath = cfg.Allowlist.Path
	}
	if len(cfg.Embeds) > 0 {
		out.Meta.Embeds = append([]config.Embed(nil), cfg.Embeds...)
	}
	if cfg.Workers.HasCount {
		out.Meta.Workers = cfg.Workers.Count
	}
}

func applyDiscoveryMeta(out *Envelope, cfg config.Config) {
	d := cfg.Discovery
	if !d.HasRoot && !d.HasNoGitignore && !d.HasExtensions {
		return
	}
	if out.Meta.Discovery == nil {
		out.Meta.Discovery = &DiscoveryMeta{}
	}
	if d.HasRoot {
		out.Meta.Discovery.Root = d.Root
	}
	if d.HasNoGitignore {
		out.Meta.Discovery.NoGitignore = d.NoGitignore
	}
	if d.HasExtensions {
		out.Meta.Discovery.Extensions = append([]string(nil), d.Extensions...)
	}
}

func applyPipelineMeta(out *Envelope, cfg config.Config) {
	p := cfg.Pipeline
	out.Meta.Pipeline = &PipelineMeta{
		Stages:            append([]string(nil), p.Stages...),
		ContentMaxWidth:   p.ContentMaxWidth,
		AllowDirtyStyles:  p.AllowDirtyStyles,
		AllowDirtyScripts: p.AllowDirtyScripts,
	}
}

func applyValidationMeta(out *Envelope, cfg config.Config) {
	v := cfg.Validation
	out.Meta.Validation = &ValidationMeta{
		LocateSources:          v.LocateSources,
		Debug:                  v.Debug,
		PreserveSourceComments: v.PreserveSourceComments,
		Mode:                   v.Mode,
		ContentType:            v.ContentType,
		CurrentURL:             v.CurrentURL,
	}
}

func applyPolicyMeta(out *Envelope, cfg config.Config) {
	p := cfg.Policy
	if !p.HasPath && len(p.AutoAcceptContentTypes) == 0 && !p.Override.HasInline {
		return
	}
	out.Meta.Policy = &PolicyMeta{
		Path:                   p.Path,
		AutoAcceptContentTypes: append([]string(nil), p.AutoAcceptContentTypes...),
		OverrideInline:         p.Override.Inline,
		OverrideTimeoutMs:      p.Override.TimeoutMs,
	}
}

func applyCacheMeta(out *Envelope, cfg config.Config) {
	c := cfg.Cache
	if !c.HasEnabled || !c.Enabled {
		return
	}
	ttl := defaultCacheTTLHours
	if c.HasTTLHours {
		ttl = c.TTLHours
	}
	out.Meta.Cache = &CacheMeta{Enabled: true, Path: c.Path, TTLHours: ttl, Version: c.Version}
}

func applyOutputMeta(out *Envelope, cfg config.Config) {
	o := cfg.Output
	if !o.HasOut && !o.HasPretty && !o.HasLines && !o.HasDir {
		return
	}
	out.Meta.Output = &OutputMeta{Out: o.Out, Pretty: o.Pretty, Lines: o.Lines, Dir: o.Dir}
}

func applyErrorsMeta(out *Envelope, cfg config.Config) {
	e := cfg.Errors
	if !e.HasMode && !e.HasEmbed {
		return
	}
	out.Meta.Errors = &ErrorsMeta{Mode: e.Mode, EmbedErrors: e.EmbedErrors}
}
