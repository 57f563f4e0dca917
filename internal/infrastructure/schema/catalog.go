package schema

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/stepwise/internal/config"
	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// Catalog is a SchemaProvider backed by a fixed set of compiled schemas.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[wizard.SchemaRef]ports.Schema
}

var _ ports.SchemaProvider = (*Catalog)(nil)

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{schemas: make(map[wizard.SchemaRef]ports.Schema)}
}

// Add registers schema under ref. Each ref may be added once.
func (c *Catalog) Add(ref wizard.SchemaRef, schema ports.Schema) error {
	if ref == "" || schema == nil {
		return fmt.Errorf("schema catalog: ref and schema are required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.schemas[ref]; exists {
		return fmt.Errorf("schema catalog: %q already registered", ref)
	}
	c.schemas[ref] = schema
	return nil
}

// Schema implements ports.SchemaProvider.
func (c *Catalog) Schema(ref wizard.SchemaRef) (ports.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	schema, ok := c.schemas[ref]
	if !ok {
		return nil, wizard.NewError(wizard.ErrCodeUnknownSchema, "schema not found", nil, map[string]interface{}{
			"schema_ref": string(ref),
		})
	}
	return schema, nil
}

// Refs returns the registered references sorted.
func (c *Catalog) Refs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	refs := make([]string, 0, len(c.schemas))
	for ref := range c.schemas {
		refs = append(refs, string(ref))
	}
	sort.Strings(refs)
	return refs
}

// BuildCatalog compiles the rule schemas of flow and, when declared, loads
// the OpenAPI document relative to baseDir.
func BuildCatalog(ctx context.Context, flow *config.Flow, baseDir string) (*Catalog, error) {
	catalog := NewCatalog()
	if flow == nil {
		return catalog, nil
	}

	for _, name := range flow.Schemas.SortedRuleNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		compiled, err := CompileRules(name, flow.Schemas.Rules[name])
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(wizard.SchemaRef(name), compiled); err != nil {
			return nil, err
		}
	}

	if flow.Schemas.OpenAPI != "" {
		path := flow.Schemas.OpenAPI
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		schemas, err := LoadOpenAPIFile(ctx, path)
		if err != nil {
			return nil, err
		}
		for ref, compiled := range schemas {
			if err := catalog.Add(wizard.SchemaRef(ref), compiled); err != nil {
				return nil, err
			}
		}
	}

	return catalog, nil
}
