package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// LoadTimeout is the default maximum duration for parsing one workbook.
var LoadTimeout = 2 * time.Minute

// WorkbookLoader parses workbook bytes into the in-memory model.
type WorkbookLoader func(r io.Reader) (*Workbook, error)

// ServiceConfig holds the service limits. Zero values select defaults.
type ServiceConfig struct {
	MaxConcurrentLoads int
	MaxLoadWait        time.Duration
	LoadTimeout        time.Duration
	SessionTTL         time.Duration
	MaxSessions        int
}

// Default session limits.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultMaxSessions = 100
)

// Service provides the mapping and extraction operations used by the HTTP
// server and the CLI.
type Service struct {
	store   MappingStore
	load    WorkbookLoader
	limiter *LoadLimiter
	cfg     ServiceConfig
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a Service that persists mappings in store and parses
// uploads with load.
func NewService(store MappingStore, load WorkbookLoader, cfg ServiceConfig) *Service {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = LoadTimeout
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	return &Service{
		store:    store,
		load:     load,
		limiter:  NewLoadLimiter(cfg.MaxConcurrentLoads, cfg.MaxLoadWait),
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// ListCatalogs returns every registered catalog.
func (s *Service) ListCatalogs() []*Catalog {
	return AllCatalogs()
}

// ListCatalogsByGroup returns catalogs organized by group.
func (s *Service) ListCatalogsByGroup() map[string][]*Catalog {
	result := make(map[string][]*Catalog)
	for _, group := range Groups() {
		result[group] = CatalogsByGroup(group)
	}
	return result
}

// Catalog returns one catalog by key.
func (s *Service) Catalog(key string) (*Catalog, error) {
	return LookupCatalog(key)
}

// LoadWorkbook parses r while holding a load slot and drops hidden sheets.
func (s *Service) LoadWorkbook(ctx context.Context, r io.Reader) (*Workbook, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout)
	defer cancel()

	var wb *Workbook
	err := s.limiter.Do(ctx, func() error {
		loaded, err := s.load(r)
		if err != nil {
			return err
		}
		wb = loaded
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load workbook: %w", err)
	}

	wb = wb.Visible()
	if len(wb.SheetNames()) == 0 {
		return nil, ErrNoSheets
	}
	return wb, nil
}

// ExtractWithMapping runs a saved mapping over a new workbook.
// The mapping is checked for required-field coverage first.
func (s *Service) ExtractWithMapping(ctx context.Context, id string, wb *Workbook) (*ExtractionResult, SavedMapping, error) {
	saved, err := s.GetMapping(ctx, id)
	if err != nil {
		return nil, SavedMapping{}, err
	}

	c, err := LookupCatalog(saved.CatalogKey)
	if err != nil {
		return nil, SavedMapping{}, err
	}

	result, err := ExtractDetails(wb, c, saved.Details)
	if err != nil {
		return nil, SavedMapping{}, err
	}
	return result, saved, nil
}

// ExtractDetails rebuilds a mapping from its persisted form, validates it
// and extracts wb.
func ExtractDetails(wb *Workbook, c *Catalog, details []MappingDetail) (*ExtractionResult, error) {
	m, err := MappingFromDetails(c, details)
	if err != nil {
		return nil, err
	}
	if err := ValidateMapping(m, c); err != nil {
		return nil, err
	}
	return Extract(wb, m, c), nil
}

// LimiterStatus reports workbook load slot usage.
func (s *Service) LimiterStatus() LoadLimiterStatus {
	return s.limiter.Status()
}

// WaitForLoads blocks until in-flight workbook loads finish or ctx ends.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
