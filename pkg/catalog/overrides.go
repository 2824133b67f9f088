package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
	"github.com/David-Botos/warehouse-ingress/pkg/standardizer"
)

// File is the on-disk catalog override document
type File struct {
	Entities []Override `yaml:"entities"`
}

// Override adjusts one built-in entity. Empty fields keep the built-in value.
type Override struct {
	Name        string `yaml:"name"`
	Source      string `yaml:"source"`
	File        string `yaml:"file"`
	BronzeTable string `yaml:"bronze_table"`
	SilverTable string `yaml:"silver_table"`
	Disabled    bool   `yaml:"disabled"`

	// Dictionaries adds entries to the named field's dictionary
	Dictionaries map[string]map[string]string `yaml:"dictionaries"`
}

// LoadFile reads a catalog override file. An empty path yields an empty
// document; a named file that does not exist is an error.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return &f, nil
}

// Apply returns entities with the overrides applied and disabled entities
// removed. Overrides for unknown entities or dictionary fields fail with a
// ConfigurationError.
func (f *File) Apply(entities []pipeline.EntityPipeline) ([]pipeline.EntityPipeline, error) {
	out := make([]pipeline.EntityPipeline, len(entities))
	copy(out, entities)

	disabled := make(map[string]bool)
	for _, o := range f.Entities {
		idx := -1
		for i, e := range out {
			if e.Name == o.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, &pipeline.ConfigurationError{Kind: "entity", Name: o.Name}
		}

		e := out[idx]
		if o.Source != "" {
			e.Source = o.Source
		}
		if o.File != "" {
			e.File = o.File
		}
		if o.BronzeTable != "" {
			e.BronzeTable = o.BronzeTable
		}
		if o.SilverTable != "" {
			e.SilverTable = o.SilverTable
		}
		if err := extendDictionaries(&e, o.Dictionaries); err != nil {
			return nil, err
		}
		if o.Disabled {
			disabled[e.Name] = true
		}
		out[idx] = e
	}

	kept := out[:0]
	for _, e := range out {
		if !disabled[e.Name] {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

// extendDictionaries copies the entity's dictionaries before adding entries
// so the built-in maps are never shared with an override
func extendDictionaries(e *pipeline.EntityPipeline, extra map[string]map[string]string) error {
	if len(extra) == 0 {
		return nil
	}

	dicts := make([]standardizer.Dictionary, len(e.Dictionaries))
	copy(dicts, e.Dictionaries)

	for field, entries := range extra {
		found := false
		for i := range dicts {
			if dicts[i].Field != field {
				continue
			}
			found = true
			mapping := make(map[string]string, len(dicts[i].Mapping)+len(entries))
			for k, v := range dicts[i].Mapping {
				mapping[k] = v
			}
			for k, v := range entries {
				mapping[k] = v
			}
			dicts[i].Mapping = mapping
		}
		if !found {
			return &pipeline.ConfigurationError{Kind: "dictionary", Name: e.Name + "." + field}
		}
	}
	e.Dictionaries = dicts
	return nil
}
