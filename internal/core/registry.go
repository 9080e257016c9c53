package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCatalog is returned when a catalog key is not registered.
var ErrUnknownCatalog = errors.New("unknown catalog")

var (
	registry   = make(map[string]*Catalog)
	registryMu sync.RWMutex
)

// RegisterCatalog adds a catalog to the registry.
// Panics if a catalog with the same key is already registered or the catalog
// is malformed; registration happens at init time where that is a programming
// error. Use RegisterCatalogE for catalogs loaded at runtime.
func RegisterCatalog(c Catalog) {
	if err := RegisterCatalogE(c); err != nil {
		panic(err.Error())
	}
}

// RegisterCatalogE adds a catalog to the registry and reports problems as errors.
func RegisterCatalogE(c Catalog) error {
	if err := checkCatalog(c); err != nil {
		return err
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[c.Key]; exists {
		return fmt.Errorf("catalog already registered: %s", c.Key)
	}

	// Registered catalogs are never mutated; keep a private copy of the fields.
	fields := make([]Field, len(c.Fields))
	copy(fields, c.Fields)
	c.Fields = fields

	registry[c.Key] = &c
	return nil
}

// checkCatalog enforces unique, non-empty field names and known types.
func checkCatalog(c Catalog) error {
	if c.Key == "" {
		return fmt.Errorf("catalog key is required")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("catalog %s has no fields", c.Key)
	}
	seen := make(map[string]bool, len(c.Fields))
	for i, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("catalog %s: field %d has no name", c.Key, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("catalog %s: duplicate field %s", c.Key, f.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("catalog %s: field %s has invalid type %d", c.Key, f.Name, int(f.Type))
		}
		seen[f.Name] = true
	}
	return nil
}

// GetCatalog returns a catalog by key.
// Returns false if not found.
func GetCatalog(key string) (*Catalog, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	c, ok := registry[key]
	return c, ok
}

// AllCatalogs returns all registered catalogs.
// Sorted by group then by key for consistent ordering.
func AllCatalogs() []*Catalog {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]*Catalog, 0, len(registry))
	for _, c := range registry {
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// CatalogsByGroup returns all catalogs for a specific group, sorted by key.
func CatalogsByGroup(group string) []*Catalog {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []*Catalog
	for _, c := range registry {
		if c.Group == group {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, c := range registry {
		seen[c.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// LookupCatalog returns the catalog for key or an error wrapping ErrUnknownCatalog.
func LookupCatalog(key string) (*Catalog, error) {
	c, ok := GetCatalog(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCatalog, key)
	}
	return c, nil
}

// CatalogCount returns the number of registered catalogs.
func CatalogCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// ClearCatalogs removes all registered catalogs.
// Primarily useful for testing.
func ClearCatalogs() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]*Catalog)
}
