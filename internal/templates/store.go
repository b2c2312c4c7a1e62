// Package templates loads and serves the script templates used for generation
// and compliance checking.
package templates

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonathan/script-generator/internal/schemas"
	"github.com/jonathan/script-generator/internal/types"
	schemafiles "github.com/jonathan/script-generator/schemas"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtin embed.FS

// Store is an immutable set of templates keyed by id.
type Store struct {
	templates map[string]types.Template
}

// Builtin returns a store with only the embedded templates.
func Builtin() (*Store, error) {
	sub, err := fs.Sub(builtin, "builtin")
	if err != nil {
		return nil, err
	}
	s := &Store{templates: make(map[string]types.Template)}
	if err := s.loadFS(sub); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns the embedded templates plus any *.yaml / *.yml files in dir.
// An empty dir loads only the built-ins.
func Load(dir string) (*Store, error) {
	s, err := Builtin()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return s, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, &LoadError{Source: dir, Message: "templates directory not accessible", Cause: err}
	}
	if err := s.loadFS(os.DirFS(dir)); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) loadFS(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return &LoadError{Source: path, Message: "failed to read", Cause: err}
		}
		tmpl, err := Parse(path, data)
		if err != nil {
			return err
		}
		if _, exists := s.templates[tmpl.ID]; exists {
			return &LoadError{Source: path, Message: "duplicate template id " + tmpl.ID}
		}
		s.templates[tmpl.ID] = *tmpl
		return nil
	})
}

// Parse decodes one YAML template document and validates it against the
// template schema. source is only used in error messages.
func Parse(source string, data []byte) (*types.Template, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Source: source, Message: "invalid YAML", Cause: err}
	}
	if err := schemas.ValidateDocument(schemafiles.TemplateFile, schemafiles.Template(), raw); err != nil {
		return nil, &LoadError{Source: source, Message: "does not match template schema", Cause: err}
	}

	var tmpl types.Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, &LoadError{Source: source, Message: "invalid YAML", Cause: err}
	}
	for _, section := range tmpl.Sections {
		if section.MinWords > section.MaxWords {
			return nil, &LoadError{Source: source, Message: "section " + section.Name + " has min_words greater than max_words"}
		}
	}
	return &tmpl, nil
}

// Get returns the template with the given id.
func (s *Store) Get(id string) (*types.Template, error) {
	tmpl, ok := s.templates[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return &tmpl, nil
}

// List returns all templates sorted by id.
func (s *Store) List() []types.Template {
	out := make([]types.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByID returns the templates keyed by id, as served by the API.
func (s *Store) ByID() map[string]types.Template {
	out := make(map[string]types.Template, len(s.templates))
	for id, t := range s.templates {
		out[id] = t
	}
	return out
}
