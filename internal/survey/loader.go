package survey

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/survey-service/internal/models"
	"gopkg.in/yaml.v3"
)

// DefinitionValidator checks a decoded survey before it is installed.
type DefinitionValidator interface {
	ValidateSurvey(s *models.Survey) error
}

// Loader reads survey definitions from YAML files, one survey per file.
type Loader struct {
	dir       string
	validator DefinitionValidator
}

func NewLoader(dir string, validator DefinitionValidator) *Loader {
	return &Loader{dir: dir, validator: validator}
}

func (l *Loader) Dir() string {
	return l.dir
}

// IsDefinitionFile reports whether path looks like a survey definition.
func IsDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// TypeFromPath derives the survey type from a definition file name.
func TypeFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse decodes and validates one definition. An empty type is taken from fallbackType.
func (l *Loader) Parse(data []byte, fallbackType string) (*models.Survey, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s models.Survey
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode survey definition: %w", err)
	}
	if s.Type == "" {
		s.Type = fallbackType
	}

	if l.validator != nil {
		if err := l.validator.ValidateSurvey(&s); err != nil {
			return nil, fmt.Errorf("invalid survey definition %q: %w", s.Type, err)
		}
	}
	return &s, nil
}

// LoadFile reads and validates one definition file.
func (l *Loader) LoadFile(path string) (*models.Survey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	s, err := l.Parse(data, TypeFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// LoadAll installs every definition in the directory into the store. Invalid files are
// collected and reported together; valid ones are still installed.
func (l *Loader) LoadAll(store *Store) (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read survey directory %s: %w", l.dir, err)
	}

	loaded := 0
	var failures []string
	for _, entry := range entries {
		if entry.IsDir() || !IsDefinitionFile(entry.Name()) {
			continue
		}
		s, err := l.LoadFile(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			failures = append(failures, err.Error())
			continue
		}
		store.Put(s)
		loaded++
	}

	if len(failures) > 0 {
		return loaded, fmt.Errorf("failed to load %d survey definition(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return loaded, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
