package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/flarebyte/ampscribe/internal/taxonomy"
)

// FileStore keeps decisions in a canonical YAML file. Writers take an
// exclusive file lock and replace the file atomically; readers reload only
// when the file changed.
type FileStore struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	records map[string]Record
	modTime time.Time
	loaded  bool
}

type fileShape struct {
	Policies map[string]Record `yaml:"policies"`
}

// NewFileStore opens (lazily) the store at path. A missing file is an empty
// store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(slug string) (taxonomy.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.refresh(); err != nil {
		return "", err
	}
	if r, ok := f.records[slug]; ok {
		return r.Status, nil
	}
	return taxonomy.StatusUnreviewed, nil
}

func (f *FileStore) Set(slug string, status taxonomy.Status) error {
	return f.update(func(records map[string]Record) {
		r := records[slug]
		r.Status = status
		records[slug] = r
	})
}

// Put stores a full record.
func (f *FileStore) Put(slug string, r Record) error {
	return f.update(func(records map[string]Record) { records[slug] = r })
}

// List returns a copy of every record.
func (f *FileStore) List() (map[string]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.refresh(); err != nil {
		return nil, err
	}
	out := make(map[string]Record, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}
	return out, nil
}

func (f *FileStore) update(mutate func(map[string]Record)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("policy store: %w", err)
		}
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("policy store lock: %w", err)
	}
	defer func() { _ = f.lock.Unlock() }()

	f.loaded = false
	if err := f.refresh(); err != nil {
		return err
	}
	mutate(f.records)
	data, err := marshalRecords(f.records)
	if err != nil {
		return err
	}
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.loaded = false
	return nil
}

func (f *FileStore) refresh() error {
	info, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.records = map[string]Record{}
		f.modTime = time.Time{}
		f.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("policy store: %w", err)
	}
	if f.loaded && info.ModTime().Equal(f.modTime) {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("policy store: %w", err)
	}
	var shape fileShape
	if err := yaml.Unmarshal(data, &shape); err != nil {
		return fmt.Errorf("invalid policy file %s: %w", f.path, err)
	}
	if shape.Policies == nil {
		shape.Policies = map[string]Record{}
	}
	f.records = shape.Policies
	f.modTime = info.ModTime()
	f.loaded = true
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".policy-*.yaml")
	if err != nil {
		return fmt.Errorf("policy store: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return fmt.Errorf("policy store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("policy store: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("policy store: %w", err)
	}
	return nil
}

// marshalRecords renders records with slugs sorted so rewrites are stable.
func marshalRecords(records map[string]Record) ([]byte, error) {
	policies := &yaml.Node{Kind: yaml.MappingNode}
	slugs := make([]string, 0, len(records))
	for s := range records {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	for _, s := range slugs {
		r := records[s]
		rec := &yaml.Node{Kind: yaml.MappingNode}
		rec.Content = append(rec.Content, scalarNode("status"), scalarNode(string(r.Status)))
		if r.Code != "" {
			rec.Content = append(rec.Content, scalarNode("code"), scalarNode(r.Code))
		}
		policies.Content = append(policies.Content, scalarNode(s), rec)
	}
	top := &yaml.Node{Kind: yaml.MappingNode}
	top.Content = append(top.Content, scalarNode("policies"), policies)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(top); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
