package core

// sessions.go keeps one wizard run per uploaded workbook.
//
// Sessions live in memory only. Each has its own mutex so that rapid clicks
// on the same session are applied one at a time, while different sessions
// proceed in parallel. Idle sessions are dropped by the reaper in
// scheduler.go.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
)

type session struct {
	id        string
	fileName  string
	createdAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	wizard   *Wizard
	saved    *SavedMapping
	editing  *SavedMapping
}

// SessionInfo is the client view of a session.
type SessionInfo struct {
	ID        string         `json:"id"`
	FileName  string         `json:"fileName"`
	CreatedAt time.Time      `json:"createdAt"`
	LastUsed  time.Time      `json:"lastUsed"`
	EditingID string         `json:"editingId,omitempty"`
	Wizard    WizardSnapshot `json:"wizard"`
	Saved     *SavedMapping  `json:"saved,omitempty"`
}

// CommitOptions names the mapping a session saves. When the session edits a
// saved mapping, an empty Name or TemplateFileName and a nil Department keep
// the stored values.
type CommitOptions struct {
	Name             string
	TemplateFileName string
	Department       *int
}

// ClickResult reports a click and the session state after it.
type ClickResult struct {
	Outcome ClickOutcome `json:"outcome"`
	Session *SessionInfo `json:"session"`
}

// SheetPage is a window of one sheet's raw cells for rendering the grid.
type SheetPage struct {
	Name         string   `json:"name"`
	Offset       int      `json:"offset"`
	TotalRows    int      `json:"totalRows"`
	TotalColumns int      `json:"totalColumns"`
	Columns      []string `json:"columns"` // Column letters
	Rows         [][]any  `json:"rows"`
}

// StartSession loads a workbook and opens a wizard run for catalogKey.
func (s *Service) StartSession(ctx context.Context, catalogKey, fileName string, r io.Reader) (*SessionInfo, error) {
	c, err := LookupCatalog(catalogKey)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, fileName, r, nil, func(wb *Workbook) *Wizard {
		return NewWizard(wb, c)
	})
}

// EditSession loads a workbook and opens a wizard run in configure seeded
// with the bindings of a saved mapping. Committing the session updates that
// mapping instead of creating a new one.
func (s *Service) EditSession(ctx context.Context, mappingID, fileName string, r io.Reader) (*SessionInfo, error) {
	saved, err := s.GetMapping(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	c, err := LookupCatalog(saved.CatalogKey)
	if err != nil {
		return nil, err
	}
	m, err := MappingFromDetails(c, saved.Details)
	if err != nil {
		return nil, fmt.Errorf("rebuild mapping %s: %w", saved.ID, err)
	}
	return s.openSession(ctx, fileName, r, &saved, func(wb *Workbook) *Wizard {
		return ResumeWizard(wb, c, m, saved.HeaderMode)
	})
}

// openSession registers a new session once the workbook has loaded.
func (s *Service) openSession(ctx context.Context, fileName string, r io.Reader, editing *SavedMapping, start func(*Workbook) *Wizard) (*SessionInfo, error) {
	s.mu.RLock()
	full := len(s.sessions) >= s.cfg.MaxSessions
	s.mu.RUnlock()
	if full {
		return nil, ErrTooManySessions
	}

	wb, err := s.LoadWorkbook(ctx, r)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &session{
		id:        uuid.New().String(),
		fileName:  fileName,
		createdAt: now,
		lastUsed:  now,
		wizard:    start(wb),
		editing:   editing,
	}
	info := sess.info()

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return nil, ErrTooManySessions
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	return info, nil
}

// Session returns the current state of a session.
func (s *Service) Session(id string) (*SessionInfo, error) {
	var info *SessionInfo
	err := s.withSession(id, func(sess *session) error {
		info = sess.info()
		return nil
	})
	return info, err
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseSession discards a session.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// SessionSheet returns up to limit rows of a sheet starting at offset.
func (s *Service) SessionSheet(id, sheetName string, offset, limit int) (*SheetPage, error) {
	var page *SheetPage
	err := s.withSession(id, func(sess *session) error {
		sheet, ok := sess.wizard.Workbook().Sheet(sheetName)
		if !ok {
			return fmt.Errorf("%w: %s", ErrSheetNotFound, sheetName)
		}

		rows, cols := sheet.Dimensions()
		page = &SheetPage{
			Name:         sheet.Name,
			Offset:       offset,
			TotalRows:    rows,
			TotalColumns: cols,
			Columns:      make([]string, cols),
			Rows:         sheet.Window(offset, limit),
		}
		for i := range page.Columns {
			page.Columns[i] = ColumnName(i)
		}
		return nil
	})
	return page, err
}

// ChooseMode answers select_mode.
func (s *Service) ChooseMode(id string, hasHeader bool) (*SessionInfo, error) {
	return s.mutate(id, func(w *Wizard) error {
		return w.ChooseMode(hasHeader)
	})
}

// ClickCell toggles a cell during header or data-start selection.
func (s *Service) ClickCell(id string, pos CellPosition) (*ClickResult, error) {
	var outcome ClickOutcome
	info, err := s.mutate(id, func(w *Wizard) error {
		var err error
		outcome, err = w.Click(pos)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ClickResult{Outcome: outcome, Session: info}, nil
}

// ConfirmSelection ends cell selection.
func (s *Service) ConfirmSelection(id string) (*SessionInfo, error) {
	return s.mutate(id, (*Wizard).ConfirmSelection)
}

// SetRowStart answers set_row_start; nil keeps each binding's row.
func (s *Service) SetRowStart(id string, row *int) (*SessionInfo, error) {
	return s.mutate(id, func(w *Wizard) error {
		return w.SetRowStart(row)
	})
}

// UpdateBinding reassigns the field and/or start row of binding index.
// The field change is applied first; a failing row change leaves it applied.
func (s *Service) UpdateBinding(id string, index int, field *string, row *int) (*SessionInfo, error) {
	return s.mutate(id, func(w *Wizard) error {
		if field != nil {
			if err := w.Reassign(index, *field); err != nil {
				return err
			}
		}
		if row != nil {
			if err := w.SetBindingRow(index, *row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Preview extracts the session workbook with the current mapping.
func (s *Service) Preview(id string) (*PreviewResponse, error) {
	var resp *PreviewResponse
	err := s.withSession(id, func(sess *session) error {
		start := time.Now()
		result, err := sess.wizard.Preview()
		if err != nil {
			return err
		}
		resp = BuildPreview(result, time.Since(start))
		return nil
	})
	return resp, err
}

// ResetSession returns a session in configure to select_mode.
func (s *Service) ResetSession(id string) (*SessionInfo, error) {
	return s.mutate(id, (*Wizard).Reset)
}

// CommitSession saves the session's mapping and moves the wizard to
// ready_for_extraction. A session opened by EditSession updates the mapping
// it was seeded from. Nothing changes if the save fails.
func (s *Service) CommitSession(ctx context.Context, id string, opts CommitOptions) (*SessionInfo, error) {
	var info *SessionInfo
	err := s.withSession(id, func(sess *session) error {
		w := sess.wizard
		if w.Step() != StepConfigure {
			return fmt.Errorf("%w: commit in %s", ErrInvalidStep, w.Step())
		}

		m := w.Mapping()
		if err := ValidateMapping(m, w.Catalog()); err != nil {
			return err
		}

		headerMode, _ := w.HeaderMode()
		next := SavedMapping{
			Name:             opts.Name,
			CatalogKey:       w.Catalog().Key,
			TemplateFileName: opts.TemplateFileName,
			HeaderMode:       headerMode,
			Details:          m.Details(w.Catalog()),
		}
		if opts.Department != nil {
			next.Department = *opts.Department
		}

		var (
			saved SavedMapping
			err   error
		)
		if ed := sess.editing; ed != nil {
			if next.Name == "" {
				next.Name = ed.Name
			}
			if next.TemplateFileName == "" {
				next.TemplateFileName = ed.TemplateFileName
			}
			if opts.Department == nil {
				next.Department = ed.Department
			}
			saved, err = s.UpdateMapping(ctx, ed.ID, next)
		} else {
			if next.TemplateFileName == "" {
				next.TemplateFileName = sess.fileName
			}
			saved, err = s.SaveMapping(ctx, next)
		}
		if err != nil {
			return err
		}

		if _, err := w.Commit(); err != nil {
			return err
		}
		sess.saved = &saved
		info = sess.info()
		return nil
	})
	return info, err
}

// ExportSession extracts the session workbook for download. Available once
// the wizard has reached configure.
func (s *Service) ExportSession(id string) (*ExtractionResult, *Catalog, error) {
	var (
		result *ExtractionResult
		c      *Catalog
	)
	err := s.withSession(id, func(sess *session) error {
		w := sess.wizard
		switch st := w.State().(type) {
		case Review:
			result = st.Preview()
		case Ready:
			result = st.Extract(w.Workbook())
		default:
			return fmt.Errorf("%w: export in %s", ErrInvalidStep, w.Step())
		}
		c = w.Catalog()
		return nil
	})
	return result, c, err
}

// withSession runs fn with the session locked and marks it used.
func (s *Service) withSession(id string, fn func(*session) error) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastUsed = s.now()
	return fn(sess)
}

// mutate applies a wizard transition and returns the resulting state.
func (s *Service) mutate(id string, fn func(*Wizard) error) (*SessionInfo, error) {
	var info *SessionInfo
	err := s.withSession(id, func(sess *session) error {
		if err := fn(sess.wizard); err != nil {
			return err
		}
		info = sess.info()
		return nil
	})
	return info, err
}

// info must be called with sess.mu held.
func (sess *session) info() *SessionInfo {
	info := &SessionInfo{
		ID:        sess.id,
		FileName:  sess.fileName,
		CreatedAt: sess.createdAt,
		LastUsed:  sess.lastUsed,
		Wizard:    sess.wizard.Snapshot(),
		Saved:     sess.saved,
	}
	if sess.editing != nil {
		info.EditingID = sess.editing.ID
	}
	return info
}
