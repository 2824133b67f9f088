package pipeline

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/David-Botos/warehouse-ingress/pkg/capture"
	"github.com/David-Botos/warehouse-ingress/pkg/cleaner"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/standardizer"
	"github.com/David-Botos/warehouse-ingress/pkg/validator"
)

// EntityPipeline declares everything needed to load one entity from its
// raw extract into the bronze and silver tables
type EntityPipeline struct {
	Name        string // e.g. crm_customers_info
	Source      string // source system, e.g. crm
	File        string // extract path relative to the data directory
	BronzeTable string
	SilverTable string

	Capture      capture.Descriptor
	Schema       model.Schema
	Normalize    cleaner.Rules
	Dictionaries []standardizer.Dictionary
	Derives      []standardizer.DeriveRule
	Rules        []validator.Rule
	Refinements  []validator.Refinement

	// BusinessKey and OrderBy enable deduplication when BusinessKey is set
	BusinessKey []string
	OrderBy     string

	// SilverColumns, when set, projects the conformed batch before writing
	SilverColumns []string
}

// Validate checks that the declaration is complete
func (p EntityPipeline) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("entity name is required")
	case p.Source == "":
		return fmt.Errorf("entity %s: source is required", p.Name)
	case p.File == "":
		return fmt.Errorf("entity %s: file is required", p.Name)
	case p.BronzeTable == "" || p.SilverTable == "":
		return fmt.Errorf("entity %s: bronze and silver tables are required", p.Name)
	case len(p.BusinessKey) > 0 && p.OrderBy == "":
		return fmt.Errorf("entity %s: business key requires an ordering column", p.Name)
	}
	return nil
}

// FileName is the extract's base name, as recorded in the ledger
func (p EntityPipeline) FileName() string {
	return path.Base(filepath.ToSlash(p.File))
}

// Deduplicates reports whether a business key is declared
func (p EntityPipeline) Deduplicates() bool {
	return len(p.BusinessKey) > 0
}

// descriptor returns the capture descriptor with the entity name filled in
func (p EntityPipeline) descriptor() capture.Descriptor {
	d := p.Capture
	if d.Entity == "" {
		d.Entity = p.Name
	}
	return d
}
