// Package allowlist loads the allowed-tag table consulted by the sanitizer:
// for a tag name, the attribute sets it may carry and the descendants it may
// contain.
package allowlist

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultTable []byte

// Spec is one allowed form of a tag.
type Spec struct {
	Attributes  []string `yaml:"attributes"`
	Descendants []string `yaml:"descendants,omitempty"`

	attrs map[string]struct{}
}

// Table maps lower-case tag names to their allowed forms.
type Table struct {
	tags   map[string][]Spec
	digest string
}

type fileShape struct {
	Tags map[string][]Spec `yaml:"tags"`
}

var globalAttributes = map[string]struct{}{
	"id": {}, "class": {}, "title": {}, "lang": {}, "dir": {}, "hidden": {},
	"role": {}, "tabindex": {}, "on": {}, "itemprop": {}, "itemscope": {},
	"itemtype": {}, "translate": {},
}

// IsGlobalAttribute reports whether name is accepted on every tag.
func IsGlobalAttribute(name string) bool {
	name = strings.ToLower(name)
	if _, ok := globalAttributes[name]; ok {
		return true
	}
	return strings.HasPrefix(name, "data-") || strings.HasPrefix(name, "aria-")
}

// Parse reads a YAML table.
func Parse(data []byte) (*Table, error) {
	var f fileShape
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid allowlist: %w", err)
	}
	sum := sha256.Sum256(data)
	t := &Table{tags: make(map[string][]Spec, len(f.Tags)), digest: hex.EncodeToString(sum[:])}
	for name, specs := range f.Tags {
		for i := range specs {
			specs[i].attrs = make(map[string]struct{}, len(specs[i].Attributes))
			for _, a := range specs[i].Attributes {
				specs[i].attrs[strings.ToLower(a)] = struct{}{}
			}
		}
		t.tags[strings.ToLower(name)] = specs
	}
	return t, nil
}

// Load reads a YAML table from path.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowlist: %w", err)
	}
	return Parse(data)
}

var (
	defaultOnce sync.Once
	defaultTbl  *Table
)

// Default returns the embedded table.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(defaultTable)
		if err != nil {
			panic(err)
		}
		defaultTbl = t
	})
	return defaultTbl
}

// Digest identifies the source bytes of the table.
func (t *Table) Digest() string {
	if t == nil {
		return ""
	}
	return t.digest
}

// Lookup returns the allowed forms of a tag.
func (t *Table) Lookup(name string) ([]Spec, bool) {
	specs, ok := t.tags[strings.ToLower(name)]
	return specs, ok
}

// Tags lists the known tag names in order.
func (t *Table) Tags() []string {
	out := make([]string, 0, len(t.tags))
	for k := range t.tags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AllowsAttribute reports whether the form accepts attribute name.
func (s Spec) AllowsAttribute(name string) bool {
	if IsGlobalAttribute(name) {
		return true
	}
	_, ok := s.attrs[strings.ToLower(name)]
	return ok
}

// AllowsDescendant reports whether tag may appear below this form.
func (s Spec) AllowsDescendant(tag string) bool {
	if len(s.Descendants) == 0 {
		return true
	}
	for _, d := range s.Descendants {
		if strings.EqualFold(d, tag) {
			return true
		}
	}
	return false
}
