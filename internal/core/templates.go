package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Saved mapping errors returned by MappingStore implementations.
var (
	ErrMappingNotFound  = errors.New("mapping not found")
	ErrDuplicateMapping = errors.New("mapping name already exists for this catalog and department")
)

// TemplateMatchThreshold is the minimum score for a saved mapping to be
// offered for a workbook.
const TemplateMatchThreshold = 0.7

// SaveMapping validates m against its catalog and stores it.
// Data types and required flags are taken from the catalog, not the caller.
func (s *Service) SaveMapping(ctx context.Context, m SavedMapping) (SavedMapping, error) {
	if err := s.prepareMapping(&m); err != nil {
		return SavedMapping{}, err
	}

	saved, err := s.store.Create(ctx, m)
	if err != nil {
		return SavedMapping{}, fmt.Errorf("create mapping: %w", err)
	}
	return saved, nil
}

// GetMapping retrieves a saved mapping by ID.
func (s *Service) GetMapping(ctx context.Context, id string) (SavedMapping, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return SavedMapping{}, fmt.Errorf("get mapping: %w", err)
	}
	return m, nil
}

// ListMappings returns the saved mappings that pass f.
func (s *Service) ListMappings(ctx context.Context, f MappingFilter) ([]SavedMapping, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return list, nil
}

// UpdateMapping replaces the name, department, template file name and
// details of an existing mapping. The catalog cannot change.
func (s *Service) UpdateMapping(ctx context.Context, id string, m SavedMapping) (SavedMapping, error) {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return SavedMapping{}, fmt.Errorf("get mapping: %w", err)
	}

	m.ID = current.ID
	m.CatalogKey = current.CatalogKey
	m.CreatedAt = current.CreatedAt
	if err := s.prepareMapping(&m); err != nil {
		return SavedMapping{}, err
	}

	updated, err := s.store.Update(ctx, m)
	if err != nil {
		return SavedMapping{}, fmt.Errorf("update mapping: %w", err)
	}
	return updated, nil
}

// DeleteMapping removes a saved mapping.
func (s *Service) DeleteMapping(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}

// prepareMapping checks tags, catalog membership and binding invariants,
// then fills catalog-owned detail attributes.
func (s *Service) prepareMapping(m *SavedMapping) error {
	m.Name = strings.TrimSpace(m.Name)
	if err := ValidateInput(m); err != nil {
		return err
	}

	c, err := LookupCatalog(m.CatalogKey)
	if err != nil {
		return err
	}

	built, err := MappingFromDetails(c, m.Details)
	if err != nil {
		return err
	}
	m.Details = built.Details(c)
	return nil
}

// MatchMappings scores the saved mappings of a catalog visible to department
// against wb and returns those at or above TemplateMatchThreshold, best first.
func (s *Service) MatchMappings(ctx context.Context, catalogKey string, department int, wb *Workbook) ([]MappingMatch, error) {
	if _, err := LookupCatalog(catalogKey); err != nil {
		return nil, err
	}

	mappings, err := s.ListMappings(ctx, MappingFilter{CatalogKey: catalogKey, Department: department})
	if err != nil {
		return nil, err
	}

	matches := []MappingMatch{}
	for _, m := range mappings {
		score := matchLayout(wb, m)
		if score >= TemplateMatchThreshold {
			matches = append(matches, MappingMatch{
				Mapping:    m,
				MatchScore: score,
			})
		}
	}

	// Sort by score descending
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches, nil
}

// matchLayout returns the fraction of a mapping's details that fit wb.
//
// For header mappings a detail fits when a cell above its start row in the
// same column carries the recorded header text. For headerless mappings a
// detail fits when its start cell holds a value.
func matchLayout(wb *Workbook, m SavedMapping) float64 {
	if len(m.Details) == 0 {
		return 0
	}

	matched := 0
	for _, d := range m.Details {
		sheet, ok := wb.Sheet(d.SheetName)
		if !ok {
			continue
		}

		if !m.HeaderMode {
			if !IsEmpty(sheet.Cell(d.RowPosition, d.ColumnPosition)) {
				matched++
			}
			continue
		}

		want := normalizeHeader(d.DisplayName)
		if want == "" {
			continue
		}
		for row := d.RowPosition - 1; row >= 0; row-- {
			if normalizeHeader(Stringify(sheet.Cell(row, d.ColumnPosition))) == want {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(len(m.Details))
}

// normalizeHeader lowercases and collapses whitespace for header comparison.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
