package stage

import (
	"github.com/flarebyte/ampscribe/internal/config"
	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// Error represents a stage error, optionally scoped to one document.
type Error struct {
	Stage   string `json:"stage"`
	Locator string `json:"locator,omitempty"`
	Message string `json:"message"`
}

// ConfigMeta holds validated config essentials.
type ConfigMeta struct {
	ConfigVersion string `json:"configVersion"`
	Action        string `json:"action"`
}

// DiscoveryMeta holds discovery options.
type DiscoveryMeta struct {
	Root        string   `json:"root,omitempty"`
	NoGitignore bool     `json:"noGitignore,omitempty"`
	Extensions  []string `json:"extensions,omitempty"`
}

// PipelineMeta holds sanitizer options.
type PipelineMeta struct {
	Stages            []string `json:"stages,omitempty"`
	ContentMaxWidth   int      `json:"contentMaxWidth,omitempty"`
	AllowDirtyStyles  bool     `json:"allowDirtyStyles,omitempty"`
	AllowDirtyScripts bool     `json:"allowDirtyScripts,omitempty"`
}

// ValidationMeta holds per-document run options.
type ValidationMeta struct {
	LocateSources          bool   `json:"locateSources,omitempty"`
	Debug                  bool   `json:"debug,omitempty"`
	PreserveSourceComments bool   `json:"preserveSourceComments,omitempty"`
	Mode                   string `json:"mode,omitempty"`
	ContentType            string `json:"contentType,omitempty"`
	CurrentURL             string `json:"currentURL,omitempty"`
}

// SourcesMeta holds the roots used to classify renderers.
type SourcesMeta struct {
	PluginDir   string `json:"pluginDir,omitempty"`
	ThemeDir    string `json:"themeDir,omitempty"`
	MuPluginDir string `json:"muPluginDir,omitempty"`
	CoreDir     string `json:"coreDir,omitempty"`
}

// PolicyMeta locates the decision store and override hook.
type PolicyMeta struct {
	Path                   string   `json:"path,omitempty"`
	AutoAcceptContentTypes []string `json:"autoAcceptContentTypes,omitempty"`
	OverrideInline         string   `json:"-"`
	OverrideTimeoutMs      int      `json:"overrideTimeoutMs,omitempty"`
}

// CacheMeta holds response cache settings.
type CacheMeta struct {
	Enabled  bool   `json:"enabled"`
	Path     string `json:"path,omitempty"`
	TTLHours int    `json:"ttlHours,omitempty"`
	Version  string `json:"version,omitempty"`
}

// OutputMeta holds output settings.
type OutputMeta struct {
	Out    string `json:"out,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
	Lines  bool   `json:"lines,omitempty"`
	Dir    string `json:"dir,omitempty"`
}

// ErrorsMeta selects the error mode.
type ErrorsMeta struct {
	Mode        string `json:"mode,omitempty"`
	EmbedErrors bool   `json:"embedErrors,omitempty"`
}

// Meta holds optional metadata with deterministic JSON field order.
type Meta struct {
	ContractVersion string            `json:"contractVersion,omitempty"`
	Stage           string            `json:"stage,omitempty"`
	ConfigPath      string            `json:"configPath,omitempty"`
	Config          *ConfigMeta       `json:"config,omitempty"`
	Discovery       *DiscoveryMeta    `json:"discovery,omitempty"`
	Pipeline        *PipelineMeta     `json:"pipeline,omitempty"`
	Validation      *ValidationMeta   `json:"validation,omitempty"`
	Sources         *SourcesMeta      `json:"sources,omitempty"`
	Policy          *PolicyMeta       `json:"policy,omitempty"`
	Cache           *CacheMeta        `json:"cache,omitempty"`
	AllowlistPath   string            `json:"allowlistPath,omitempty"`
	Embeds          []config.Embed    `json:"embeds,omitempty"`
	Output          *OutputMeta       `json:"output,omitempty"`
	Errors          *ErrorsMeta       `json:"errors,omitempty"`
	Workers         int               `json:"workers,omitempty"`
	Summary         *taxonomy.Summary `json:"summary,omitempty"`
	Blocking        int               `json:"blocking,omitempty"`
}

// Envelope is the JSON-serializable contract between stages.
// Field order is stable to keep JSON deterministic in tests.
type Envelope struct {
	Records []Record `json:"records"`
	Meta    *Meta    `json:"meta,omitempty"`
	Errors  []Error  `json:"errors,omitempty"`
}

func (in Envelope) action() string {
	if in.Meta != nil && in.Meta.Config != nil {
		return in.Meta.Config.Action
	}
	return ""
}
