// Package catalog declares the warehouse entities loaded by the pipeline.
package catalog

import (
	"time"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
)

// LoadedAt is the capture timestamp column every bronze table carries
const LoadedAt = "loaded_at"

// Builtin returns the six CRM and ERP entities in load order. now feeds
// the rules that compare against the current date; nil means time.Now.
func Builtin(now func() time.Time) []pipeline.EntityPipeline {
	if now == nil {
		now = time.Now
	}
	return []pipeline.EntityPipeline{
		crmCustomers(),
		crmProducts(),
		crmSales(),
		erpCustomers(now),
		erpLocations(),
		erpCategories(),
	}
}

// BronzeTables lists the bronze tables of entities, in order
func BronzeTables(entities []pipeline.EntityPipeline) []string {
	tables := make([]string, len(entities))
	for i, e := range entities {
		tables[i] = e.BronzeTable
	}
	return tables
}

// SilverTables lists the silver tables of entities, in order
func SilverTables(entities []pipeline.EntityPipeline) []string {
	tables := make([]string, len(entities))
	for i, e := range entities {
		tables[i] = e.SilverTable
	}
	return tables
}

// Find returns the entity called name
func Find(entities []pipeline.EntityPipeline, name string) (pipeline.EntityPipeline, error) {
	for _, e := range entities {
		if e.Name == name {
			return e, nil
		}
	}
	return pipeline.EntityPipeline{}, &pipeline.ConfigurationError{Kind: "entity", Name: name}
}

// identity maps every listed column onto itself
func identity(columns ...string) map[string]string {
	m := make(map[string]string, len(columns))
	for _, c := range columns {
		m[c] = c
	}
	return m
}

// bronzeOutput is raw_row, the listed columns, then loaded_at
func bronzeOutput(columns ...string) []string {
	out := make([]string, 0, len(columns)+2)
	out = append(out, model.RawRowColumn)
	out = append(out, columns...)
	return append(out, LoadedAt)
}
