package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type document struct {
	Models []*Model `yaml:"models"`
}

// Parse decodes every YAML document in data. Each document lists models under
// a top level "models" key.
func Parse(data []byte) ([]*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var out []*Model
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("model: parse yaml: %w", err)
		}
		for _, m := range doc.Models {
			if m == nil {
				continue
			}
			if m.Kind == "" {
				return nil, fmt.Errorf("%w: model without kind", ErrInvalidModel)
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// ParseFile reads and parses one YAML file.
func ParseFile(path string) ([]*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: read %s: %w", path, err)
	}
	models, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return models, nil
}

// ParseDir parses every .yaml and .yml file in dir, in name order.
func ParseDir(dir string) ([]*Model, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("model: read dir %s: %w", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var out []*Model
	for _, name := range names {
		models, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, models...)
	}
	return out, nil
}

// LoadDir parses dir into a new registry.
func LoadDir(dir string) (*Registry, error) {
	models, err := ParseDir(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(models...)
}
