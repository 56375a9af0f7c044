// Package extract loads genealogy facts from story text, JSON or YAML.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/kgrepair/internal/model"
)

// Loader reads one input format.
type Loader interface {
	// Name identifies the format in logs.
	Name() string

	// CanHandle reports whether the loader accepts the file name.
	CanHandle(path string) bool

	// Load parses r into facts.
	Load(r io.Reader) (model.FactSet, error)
}

// Registry picks a loader by file name, falling back to story text.
type Registry struct {
	loaders  []Loader
	fallback Loader
}

// NewRegistry returns a registry with the JSON and YAML loaders and the
// story extractor as fallback.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{fallback: &storyLoader{extractor: NewStoryExtractor(logger)}}
	r.Register(jsonLoader{})
	r.Register(yamlLoader{})
	return r
}

// Register adds a loader ahead of the fallback.
func (r *Registry) Register(l Loader) {
	r.loaders = append(r.loaders, l)
}

// Find returns the loader for path.
func (r *Registry) Find(path string) Loader {
	for _, l := range r.loaders {
		if l.CanHandle(path) {
			return l
		}
	}
	return r.fallback
}

// LoadFile opens path and parses it with the matching loader.
func (r *Registry) LoadFile(path string) (model.FactSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open facts: %w", err)
	}
	defer func() { _ = f.Close() }()

	l := r.Find(path)
	facts, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s facts %s: %w", l.Name(), path, err)
	}
	return facts, nil
}

// LoadFacts loads path with the default registry.
func LoadFacts(path string) (model.FactSet, error) {
	return NewRegistry(nil).LoadFile(path)
}

func hasExt(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// recordMap is the on-disk shape of structured facts: name -> record.
// A record's own name field, when present, overrides the key.
type recordMap map[string]model.PersonFact

func (m recordMap) facts() model.FactSet {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)

	fragments := make([]model.PersonFact, 0, len(m))
	for _, key := range names {
		f := m[key]
		if f.Name == "" {
			f.Name = key
		}
		fragments = append(fragments, f)
	}
	return model.Merge(fragments...)
}

type jsonLoader struct{}

func (jsonLoader) Name() string               { return "json" }
func (jsonLoader) CanHandle(path string) bool { return hasExt(path, ".json") }

func (jsonLoader) Load(r io.Reader) (model.FactSet, error) {
	var m recordMap
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m.facts(), nil
}

type yamlLoader struct{}

func (yamlLoader) Name() string               { return "yaml" }
func (yamlLoader) CanHandle(path string) bool { return hasExt(path, ".yaml", ".yml") }

func (yamlLoader) Load(r io.Reader) (model.FactSet, error) {
	var m recordMap
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return model.FactSet{}, nil
		}
		return nil, err
	}
	return m.facts(), nil
}

type storyLoader struct {
	extractor *StoryExtractor
}

func (*storyLoader) Name() string         { return "story" }
func (*storyLoader) CanHandle(string) bool { return true }

func (l *storyLoader) Load(r io.Reader) (model.FactSet, error) {
	facts, _, err := l.extractor.Extract(r)
	return facts, err
}
