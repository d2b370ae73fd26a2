package config

import (
	"fmt"

	"cuelang.org/go/cue"
)

// Action names.
const (
	ActionSanitize = "sanitize"
	ActionValidate = "validate"
)

// Config is the parsed run configuration. Optional sections carry presence
// flags so stages can tell an explicit zero from an absent field.
type Config struct {
	ConfigVersion string
	Action        string
	Discovery     Discovery
	Pipeline      Pipeline
	Validation    Validation
	Sources       Sources
	Policy        Policy
	Cache         Cache
	Allowlist     Allowlist
	Embeds        []Embed
	Output        Output
	Errors        Errors
	Workers       Workers
	Logging       Logging
}

// LoadAndValidate loads a CUE file and validates the required fields:
//   - configVersion: string
//   - action: string
func LoadAndValidate(path string) error {
	_, err := Parse(path)
	return err
}

// Parse compiles the CUE file at path and extracts every section.
func Parse(path string) (Config, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Config{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Config{}, err
	}
	if err := requireStringField(v, "action"); err != nil {
		return Config{}, err
	}
	var c Config
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&c.ConfigVersion); err != nil {
		return Config{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if err := checkConfigVersion(c.ConfigVersion); err != nil {
		return Config{}, err
	}
	if err := v.LookupPath(cue.ParsePath("action")).Decode(&c.Action); err != nil {
		return Config{}, fmt.Errorf("invalid value for action: %v", err)
	}
	if c.Action != ActionSanitize && c.Action != ActionValidate {
		return Config{}, fmt.Errorf("invalid action: %q (expected %s or %s)", c.Action, ActionSanitize, ActionValidate)
	}
	c.Discovery = parseDiscoverySection(v)
	c.Pipeline = parsePipelineSection(v)
	c.Validation = parseValidationSection(v)
	c.Sources = parseSourcesSection(v)
	c.Policy = parsePolicySection(v)
	c.Cache = parseCacheSection(v)
	c.Allowlist = parseAllowlistSection(v)
	embeds, err := parseEmbedsSection(v)
	if err != nil {
		return Config{}, err
	}
	c.Embeds = embeds
	c.Output = parseOutputSection(v)
	c.Errors = parseErrorsSection(v)
	c.Workers = parseWorkersSection(v)
	c.Logging = parseLoggingSection(v)
	return c, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

// Discovery selects the documents to process.
type Discovery struct {
	Root           string
	NoGitignore    bool
	Extensions     []string
	HasRoot        bool
	HasNoGitignore bool
	HasExtensions  bool
}

// Pipeline configures the sanitizer.
type Pipeline struct {
	Stages               []string
	ContentMaxWidth      int
	AllowDirtyStyles     bool
	AllowDirtyScripts    bool
	HasStages            bool
	HasContentMaxWidth   bool
	HasAllowDirtyStyles  bool
	HasAllowDirtyScripts bool
}

// Validation configures the orchestrator.
type Validation struct {
	LocateSources          bool
	Debug                  bool
	PreserveSourceComments bool
	Mode                   string
	ContentType            string
	CurrentURL             string
	HasLocateSources       bool
	HasDebug               bool
	HasPreserve            bool
	HasMode                bool
	HasContentType         bool
	HasCurrentURL          bool
}

// Sources are the roots used to classify renderers.
type Sources struct {
	PluginDir   string
	ThemeDir    string
	MuPluginDir string
	CoreDir     string
}

// Policy locates the decision store and the override hook.
type Policy struct {
	Path                   string
	AutoAcceptContentTypes []string
	Override               Override
	HasPath                bool
}

// Override is an inline Lua predicate.
type Override struct {
	Inline     string
	TimeoutMs  int
	HasInline  bool
	HasTimeout bool
}

// Cache configures the response cache.
type Cache struct {
	Enabled     bool
	Path        string
	TTLHours    int
	Version     string
	HasEnabled  bool
	HasPath     bool
	HasTTLHours bool
}

// Allowlist points at a replacement tag table.
type Allowlist struct {
	Path    string
	HasPath bool
}

// Embed is a static embed handler.
type Embed struct {
	Handle          string `json:"handle"`
	ScriptURL       string `json:"scriptURL"`
	Element         string `json:"element,omitempty"`
	ContentMaxWidth int    `json:"contentMaxWidth,omitempty"`
}

// Output configures where results go.
type Output struct {
	Out       string
	Pretty    bool
	Lines     bool
	Dir       string
	HasOut    bool
	HasPretty bool
	HasLines  bool
	HasDir    bool
}

// Errors selects fail-fast or keep-going.
type Errors struct {
	Mode        string
	EmbedErrors bool
	HasMode     bool
	HasEmbed    bool
}

// Workers is the document worker pool size.
type Workers struct {
	Count    int
	HasCount bool
}

// Logging configures the process logger.
type Logging struct {
	Level  string
	Format string
}
