package template

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store is an in-memory template library with YAML persistence. It is safe
// for concurrent use.
type Store struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewStore creates an empty library.
func NewStore() *Store {
	return &Store{templates: make(map[string]Template)}
}

// storeDoc is the on-disk shape: a flat list keeps the YAML hand-editable.
type storeDoc struct {
	Templates []Template `yaml:"templates"`
}

// Open loads a library from a YAML file. A missing file yields an empty
// store so first runs need no setup step.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open template library: %w", err)
	}
	defer f.Close()

	s := NewStore()
	if err := s.Read(f); err != nil {
		return nil, err
	}
	return s, nil
}

// Read replaces the store contents with templates decoded from r.
func (s *Store) Read(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read template library: %w", err)
	}

	var doc storeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse template library: %w", err)
	}

	templates := make(map[string]Template, len(doc.Templates))
	for _, t := range doc.Templates {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("template %q: %w", t.Name, err)
		}
		templates[t.Name] = t.sanitized()
	}

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
	return nil
}

// Write encodes the library to w, sorted by name for stable diffs.
func (s *Store) Write(w io.Writer) error {
	s.mu.RLock()
	doc := storeDoc{Templates: make([]Template, 0, len(s.templates))}
	for _, t := range s.templates {
		doc.Templates = append(doc.Templates, t)
	}
	s.mu.RUnlock()

	sort.Slice(doc.Templates, func(i, j int) bool {
		return doc.Templates[i].Name < doc.Templates[j].Name
	})

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode template library: %w", err)
	}
	return enc.Close()
}

// Save persists the library to a YAML file.
func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create template library: %w", err)
	}
	defer f.Close()

	return s.Write(f)
}

// Get returns the named template.
func (s *Store) Get(name string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// Put adds or replaces a template. HTML bodies are sanitized before
// storage.
func (s *Store) Put(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.templates[t.Name] = t.sanitized()
	s.mu.Unlock()
	return nil
}

// Delete removes the named template; deleting a missing name is an error
// so callers can surface typos.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.templates, name)
	return nil
}

// Names lists stored template names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
