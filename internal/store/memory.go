package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetmap/internal/core"
	"github.com/google/uuid"
)

// MemoryStore implements core.MappingStore in process memory.
// Contents are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]core.SavedMapping
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[string]core.SavedMapping),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores m with a fresh ID.
func (s *MemoryStore) Create(_ context.Context, m core.SavedMapping) (core.SavedMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(m.CatalogKey, m.Department, m.Name, "") {
		return core.SavedMapping{}, fmt.Errorf("%w: %s", core.ErrDuplicateMapping, m.Name)
	}

	now := s.now()
	m.ID = uuid.New().String()
	m.CreatedAt = now
	m.UpdatedAt = now
	m.Details = cloneDetails(m.Details)
	s.mappings[m.ID] = m
	return copyMapping(m), nil
}

// Get returns the mapping with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (core.SavedMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[id]
	if !ok {
		return core.SavedMapping{}, fmt.Errorf("%w: %s", core.ErrMappingNotFound, id)
	}
	return copyMapping(m), nil
}

// List returns mappings passing f ordered by catalog, name then department.
func (s *MemoryStore) List(_ context.Context, f core.MappingFilter) ([]core.SavedMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []core.SavedMapping{}
	for _, m := range s.mappings {
		if f.Matches(m) {
			out = append(out, copyMapping(m))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CatalogKey != out[j].CatalogKey {
			return out[i].CatalogKey < out[j].CatalogKey
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Department < out[j].Department
	})
	return out, nil
}

// Update replaces name, department, template file name, header mode and details.
func (s *MemoryStore) Update(_ context.Context, m core.SavedMapping) (core.SavedMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.mappings[m.ID]
	if !ok {
		return core.SavedMapping{}, fmt.Errorf("%w: %s", core.ErrMappingNotFound, m.ID)
	}
	if s.nameTaken(current.CatalogKey, m.Department, m.Name, m.ID) {
		return core.SavedMapping{}, fmt.Errorf("%w: %s", core.ErrDuplicateMapping, m.Name)
	}

	current.Name = m.Name
	current.Department = m.Department
	current.TemplateFileName = m.TemplateFileName
	current.HeaderMode = m.HeaderMode
	current.Details = cloneDetails(m.Details)
	current.UpdatedAt = s.now()
	s.mappings[m.ID] = current
	return copyMapping(current), nil
}

// Delete removes the mapping with the given ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mappings[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrMappingNotFound, id)
	}
	delete(s.mappings, id)
	return nil
}

// nameTaken must be called with s.mu held.
func (s *MemoryStore) nameTaken(catalogKey string, department int, name, exceptID string) bool {
	for id, m := range s.mappings {
		if id != exceptID && m.CatalogKey == catalogKey && m.Department == department && m.Name == name {
			return true
		}
	}
	return false
}

func copyMapping(m core.SavedMapping) core.SavedMapping {
	m.Details = cloneDetails(m.Details)
	return m
}

func cloneDetails(d []core.MappingDetail) []core.MappingDetail {
	if d == nil {
		return nil
	}
	out := make([]core.MappingDetail, len(d))
	copy(out, d)
	return out
}
