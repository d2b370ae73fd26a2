package stage

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flarebyte/ampscribe/internal/allowlist"
	"github.com/flarebyte/ampscribe/internal/buildinfo"
	"github.com/flarebyte/ampscribe/internal/override"
	"github.com/flarebyte/ampscribe/internal/policy"
	"github.com/flarebyte/ampscribe/internal/respcache"
	"github.com/flarebyte/ampscribe/internal/sanitize"
	"github.com/flarebyte/ampscribe/internal/source"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
	"github.com/flarebyte/ampscribe/internal/validation"
)

// documentRuntime holds what every document of one run shares.
type documentRuntime struct {
	root         string
	validate     bool
	validation   ValidationMeta
	pipeline     sanitize.Pipeline
	store        taxonomy.PolicyStore
	override     taxonomy.Override
	registry     *source.Registry
	cache        *respcache.Cache
	cacheVersion string
	logger       *zap.Logger
	closers      []func() error
}

func newDocumentRuntime(in Envelope, deps Deps) (*documentRuntime, error) {
	meta := in.Meta
	if meta == nil {
		meta = &Meta{}
	}
	rt := &documentRuntime{
		root:     determineRoot(in),
		validate: in.action() == "validate",
		logger:   deps.logger().Named(sanitizeDocumentsStage),
	}
	if meta.Validation != nil {
		rt.validation = *meta.Validation
	}

	table := allowlist.Default()
	if meta.AllowlistPath != "" {
		t, err := allowlist.Load(meta.AllowlistPath)
		if err != nil {
			return nil, err
		}
		table = t
	}
	rt.pipeline = sanitize.Pipeline{Table: table, Logger: rt.logger}
	if p := meta.Pipeline; p != nil {
		rt.pipeline.Stages = append([]string(nil), p.Stages...)
		rt.pipeline.Args = sanitize.Args{
			ContentMaxWidth:   p.ContentMaxWidth,
			AllowDirtyStyles:  p.AllowDirtyStyles,
			AllowDirtyScripts: p.AllowDirtyScripts,
		}
	}
	for _, e := range meta.Embeds {
		rt.pipeline.Embeds = append(rt.pipeline.Embeds, sanitize.StaticEmbed{
			Handle:          e.Handle,
			ScriptURL:       e.ScriptURL,
			Element:         e.Element,
			ContentMaxWidth: e.ContentMaxWidth,
		})
	}

	rt.store = deps.Store
	var overrides []taxonomy.Override
	if p := meta.Policy; p != nil {
		if rt.store == nil && p.Path != "" {
			rt.store = policy.NewFileStore(p.Path)
		}
		if len(p.AutoAcceptContentTypes) > 0 {
			overrides = append(overrides, taxonomy.AutoAccept(p.AutoAcceptContentTypes...))
		}
		if p.OverrideInline != "" {
			o, err := override.Compile(override.Options{Script: p.OverrideInline, TimeoutMs: p.OverrideTimeoutMs, Logger: rt.logger})
			if err != nil {
				return nil, err
			}
			overrides = append(overrides, o)
		}
	}
	if rt.store == nil {
		rt.store = policy.NewMemoryStore()
	}
	if len(overrides) > 0 {
		rt.override = taxonomy.Chain(overrides...)
	}

	rt.registry = deps.Registry
	if rt.registry == nil {
		var roots source.Roots
		if s := meta.Sources; s != nil {
			roots = source.Roots{PluginDir: s.PluginDir, ThemeDir: s.ThemeDir, MUPluginDir: s.MuPluginDir, CoreDir: s.CoreDir}
		}
		rt.registry = source.NewRegistry(roots)
	}

	if err := rt.openCache(meta, deps); err != nil {
		return nil, err
	}
	return rt, nil
}

func (rt *documentRuntime) openCache(meta *Meta, deps Deps) error {
	if deps.Cache != nil {
		rt.cache = deps.Cache
	} else if c := meta.Cache; c != nil && c.Enabled {
		var backend respcache.Backend = respcache.NewMemoryBackend()
		if c.Path != "" {
			sb, err := respcache.OpenSQLite(c.Path)
			if err != nil {
				return err
			}
			rt.closers = append(rt.closers, sb.Close)
			backend = sb
		}
		rt.cache = respcache.New(backend, respcache.Options{
			TTL:    time.Duration(c.TTLHours) * time.Hour,
			Logger: rt.logger,
		})
	}
	rt.cacheVersion = buildinfo.Summary()
	if meta.Cache != nil && meta.Cache.Version != "" {
		rt.cacheVersion += "+" + meta.Cache.Version
	}
	return nil
}

func (rt *documentRuntime) close() error {
	var first error
	for _, c := range rt.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (rt *documentRuntime) options(locator string) (validation.Options, error) {
	u, err := documentURL(rt.validation.CurrentURL, locator)
	if err != nil {
		return validation.Options{}, err
	}
	return validation.Options{
		LocateSources:          rt.validation.LocateSources,
		Debug:                  rt.validation.Debug,
		Validate:               rt.validate,
		PreserveSourceComments: rt.validation.PreserveSourceComments,
		Mode:                   validation.Mode(rt.validation.Mode),
		CurrentURL:             u,
		CanReview:              true,
		ContentType:            rt.validation.ContentType,
	}, nil
}

func (rt *documentRuntime) deps() validation.Deps {
	return validation.Deps{
		Pipeline: rt.pipeline,
		Store:    rt.store,
		Override: rt.override,
		Registry: rt.registry,
		Logger:   rt.logger,
	}
}

// embeds lists the configured embed handlers with every field that shapes
// their output.
func (rt *documentRuntime) embeds() []sanitize.StaticEmbed {
	out := make([]sanitize.StaticEmbed, 0, len(rt.pipeline.Embeds))
	for _, e := range rt.pipeline.Embeds {
		if s, ok := e.(sanitize.StaticEmbed); ok {
			out = append(out, s)
		}
	}
	return out
}

// documentURL resolves locator against base. Index files map to their
// directory.
func documentURL(base, locator string) (string, error) {
	if base == "" {
		return "", nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid validation.currentURL: %w", err)
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	p := locator
	for _, idx := range []string{"index.html", "index.htm"} {
		if p == idx || strings.HasSuffix(p, "/"+idx) {
			p = strings.TrimSuffix(p, idx)
			break
		}
	}
	return b.ResolveReference(&url.URL{Path: p}).String(), nil
}
