package core

// wizard.go implements the mapping wizard as a state machine.
//
// Steps and edges:
//
//	select_mode ──hasHeader──> select_headers ──> set_row_start ──> configure ──> ready_for_extraction
//	     │                                                              ^  │
//	     └──no header──> select_data_start ─────────────────────────────┘  │
//	     ^                                                                 │
//	     └───────────────────────────── reset ─────────────────────────────┘
//
// Each step is its own type and only has methods for the moves that are
// legal from it, so a caller holding a HeaderSelection cannot preview and a
// caller holding a Review cannot click cells. Wizard wraps the current state
// for transports that receive actions by name; it returns ErrInvalidStep for
// actions the current step does not offer.
//
// Neither the states nor the Wizard are safe for concurrent use. A state
// value is only meaningful until the transition that replaces it.

import (
	"errors"
	"fmt"
	"strings"
)

// Step names the wizard states as exposed to clients.
type Step string

const (
	StepSelectMode      Step = "select_mode"
	StepSelectHeaders   Step = "select_headers"
	StepSetRowStart     Step = "set_row_start"
	StepSelectDataStart Step = "select_data_start"
	StepConfigure       Step = "configure"
	StepReady           Step = "ready_for_extraction"
)

// ErrInvalidStep is returned by Wizard for actions the current step does not allow.
var ErrInvalidStep = errors.New("action not allowed in the current step")

// ClickOutcome tells the caller what a cell click did.
type ClickOutcome string

const (
	ClickAdded   ClickOutcome = "added"
	ClickRemoved ClickOutcome = "removed"
	ClickIgnored ClickOutcome = "ignored"
)

// State is one of ModeSelection, HeaderSelection, RowStartEntry,
// DataStartSelection, Review or Ready.
type State interface {
	Step() Step
	sealed()
}

// wizardData is shared by every state of one wizard run.
type wizardData struct {
	workbook   *Workbook
	catalog    *Catalog
	mapping    *Mapping
	modeChosen bool
	headerMode bool
	preview    *ExtractionResult
}

func (d *wizardData) changed() {
	d.preview = nil
}

// inSheet reports whether pos addresses a cell of an existing sheet.
func (d *wizardData) inSheet(pos CellPosition) bool {
	if pos.Row < 0 || pos.Column < 0 {
		return false
	}
	_, ok := d.workbook.Sheet(pos.Sheet)
	return ok
}

// ----------------------------------------------------------------------------
// States
// ----------------------------------------------------------------------------

// ModeSelection is select_mode: the operator says whether the layout has a
// header row.
type ModeSelection struct{ d *wizardData }

// HeaderSelection is select_headers: clicks toggle header cells.
type HeaderSelection struct{ d *wizardData }

// RowStartEntry is set_row_start: an optional common start row.
type RowStartEntry struct{ d *wizardData }

// DataStartSelection is select_data_start: clicks toggle first data cells.
type DataStartSelection struct{ d *wizardData }

// Review is configure: bindings can be edited and previewed.
type Review struct{ d *wizardData }

// Ready is ready_for_extraction: the mapping is final.
type Ready struct{ d *wizardData }

func (ModeSelection) Step() Step      { return StepSelectMode }
func (HeaderSelection) Step() Step    { return StepSelectHeaders }
func (RowStartEntry) Step() Step      { return StepSetRowStart }
func (DataStartSelection) Step() Step { return StepSelectDataStart }
func (Review) Step() Step             { return StepConfigure }
func (Ready) Step() Step              { return StepReady }

func (ModeSelection) sealed()      {}
func (HeaderSelection) sealed()    {}
func (RowStartEntry) sealed()      {}
func (DataStartSelection) sealed() {}
func (Review) sealed()             {}
func (Ready) sealed()              {}

// Start begins a wizard run over wb for catalog c.
func Start(wb *Workbook, c *Catalog) ModeSelection {
	return ModeSelection{d: &wizardData{
		workbook: wb,
		catalog:  c,
		mapping:  NewMapping(),
	}}
}

// Resume opens a run directly in configure with m already built, as when
// an operator edits a saved mapping against a fresh workbook. The run owns m.
func Resume(wb *Workbook, c *Catalog, m *Mapping, headerMode bool) Review {
	return Review{d: &wizardData{
		workbook:   wb,
		catalog:    c,
		mapping:    m,
		modeChosen: true,
		headerMode: headerMode,
	}}
}

// WithHeaders selects the header-row path.
func (s ModeSelection) WithHeaders() HeaderSelection {
	s.d.modeChosen = true
	s.d.headerMode = true
	return HeaderSelection(s)
}

// WithoutHeaders selects the headerless path.
func (s ModeSelection) WithoutHeaders() DataStartSelection {
	s.d.modeChosen = true
	s.d.headerMode = false
	return DataStartSelection(s)
}

// Choose picks the path from a boolean.
func (s ModeSelection) Choose(hasHeader bool) State {
	if hasHeader {
		return s.WithHeaders()
	}
	return s.WithoutHeaders()
}

// Click toggles a header cell.
//
// Clicking a selected header removes its binding. Otherwise the next unmapped
// catalog field is bound to the cell below the header, labelled with the
// header text. Clicks are ignored when the catalog is fully bound, the column
// already has a binding or the cell is outside the workbook.
func (s HeaderSelection) Click(pos CellPosition) ClickOutcome {
	m := s.d.mapping
	if i, ok := m.HeaderAt(pos); ok {
		if _, err := m.Remove(i); err == nil {
			s.d.changed()
			return ClickRemoved
		}
		return ClickIgnored
	}

	if !s.d.inSheet(pos) {
		return ClickIgnored
	}
	f, ok := m.NextUnmapped(s.d.catalog)
	if !ok {
		return ClickIgnored
	}

	header := pos
	b := FieldBinding{
		Field:    f.Name,
		Position: CellPosition{Sheet: pos.Sheet, Column: pos.Column, Row: pos.Row + 1},
		Label:    strings.TrimSpace(s.d.workbook.CellText(pos)),
		Header:   &header,
	}
	if _, err := m.Add(s.d.catalog, b); err != nil {
		return ClickIgnored
	}
	s.d.changed()
	return ClickAdded
}

// Confirm ends header selection. Requires at least one binding.
func (s HeaderSelection) Confirm() (RowStartEntry, error) {
	if s.d.mapping.Len() == 0 {
		return RowStartEntry{}, ErrNoBindings
	}
	return RowStartEntry(s), nil
}

// SetRowStart moves every binding to row when row is non-nil, then proceeds
// to review. With nil each binding keeps the row below its header.
func (s RowStartEntry) SetRowStart(row *int) (Review, error) {
	if row != nil {
		if err := s.d.mapping.SetAllRows(*row); err != nil {
			return Review{}, err
		}
		s.d.changed()
	}
	return Review(s), nil
}

// Click toggles a first-data cell. The clicked row is the start row and no
// label is recorded.
func (s DataStartSelection) Click(pos CellPosition) ClickOutcome {
	m := s.d.mapping
	if i, ok := m.At(pos); ok {
		if _, err := m.Remove(i); err == nil {
			s.d.changed()
			return ClickRemoved
		}
		return ClickIgnored
	}

	if !s.d.inSheet(pos) {
		return ClickIgnored
	}
	f, ok := m.NextUnmapped(s.d.catalog)
	if !ok {
		return ClickIgnored
	}
	if _, err := m.Add(s.d.catalog, FieldBinding{Field: f.Name, Position: pos}); err != nil {
		return ClickIgnored
	}
	s.d.changed()
	return ClickAdded
}

// Confirm ends data-start selection. Requires at least one binding.
func (s DataStartSelection) Confirm() (Review, error) {
	if s.d.mapping.Len() == 0 {
		return Review{}, ErrNoBindings
	}
	return Review(s), nil
}

// Reassign binds binding i to field, releasing the field it held.
func (s Review) Reassign(i int, field string) error {
	if err := s.d.mapping.Reassign(s.d.catalog, i, field); err != nil {
		return err
	}
	s.d.changed()
	return nil
}

// SetBindingRow overrides the start row of binding i.
func (s Review) SetBindingRow(i, row int) error {
	if err := s.d.mapping.SetRow(i, row); err != nil {
		return err
	}
	s.d.changed()
	return nil
}

// Preview runs the extraction engine over the wizard's workbook without
// leaving the step. The result is cached until the mapping changes.
func (s Review) Preview() *ExtractionResult {
	if s.d.preview == nil {
		s.d.preview = Extract(s.d.workbook, s.d.mapping, s.d.catalog)
	}
	return s.d.preview
}

// Reset discards every binding and returns to mode selection.
func (s Review) Reset() ModeSelection {
	s.d.mapping.Clear()
	s.d.modeChosen = false
	s.d.headerMode = false
	s.d.preview = nil
	return ModeSelection(s)
}

// Commit checks required-field coverage and freezes the mapping.
func (s Review) Commit() (Ready, error) {
	if err := ValidateMapping(s.d.mapping, s.d.catalog); err != nil {
		return Ready{}, err
	}
	return Ready(s), nil
}

// Mapping returns a copy of the final mapping.
func (s Ready) Mapping() *Mapping {
	return s.d.mapping.Clone()
}

// HeaderMode reports which path built the mapping.
func (s Ready) HeaderMode() bool {
	return s.d.headerMode
}

// Details returns the mapping in its persisted form.
func (s Ready) Details() []MappingDetail {
	return s.d.mapping.Details(s.d.catalog)
}

// Extract runs the final mapping over wb.
func (s Ready) Extract(wb *Workbook) *ExtractionResult {
	return Extract(wb, s.d.mapping, s.d.catalog)
}

// ----------------------------------------------------------------------------
// Wizard
// ----------------------------------------------------------------------------

// Wizard holds the current state of one run and dispatches named actions.
type Wizard struct {
	state State
	d     *wizardData
}

// NewWizard starts a run in select_mode.
func NewWizard(wb *Workbook, c *Catalog) *Wizard {
	s := Start(wb, c)
	return &Wizard{state: s, d: s.d}
}

// ResumeWizard starts a run in configure from an existing mapping.
func ResumeWizard(wb *Workbook, c *Catalog, m *Mapping, headerMode bool) *Wizard {
	s := Resume(wb, c, m, headerMode)
	return &Wizard{state: s, d: s.d}
}

// State returns the current state value.
func (w *Wizard) State() State { return w.state }

// Step returns the current step name.
func (w *Wizard) Step() Step { return w.state.Step() }

// Catalog returns the catalog being mapped.
func (w *Wizard) Catalog() *Catalog { return w.d.catalog }

// Workbook returns the workbook being mapped.
func (w *Wizard) Workbook() *Workbook { return w.d.workbook }

// Mapping returns a copy of the current mapping.
func (w *Wizard) Mapping() *Mapping { return w.d.mapping.Clone() }

// HeaderMode reports the chosen path; ok is false before a mode is chosen.
func (w *Wizard) HeaderMode() (headerMode, ok bool) {
	return w.d.headerMode, w.d.modeChosen
}

// Sheets returns the sheets referenced by the current bindings.
func (w *Wizard) Sheets() []string { return w.d.mapping.Sheets() }

// HeaderCells returns the selected header cells.
func (w *Wizard) HeaderCells() []CellPosition { return w.d.mapping.HeaderCells() }

func (w *Wizard) invalid(action string) error {
	return fmt.Errorf("%w: %s in %s", ErrInvalidStep, action, w.state.Step())
}

// ChooseMode answers select_mode.
func (w *Wizard) ChooseMode(hasHeader bool) error {
	s, ok := w.state.(ModeSelection)
	if !ok {
		return w.invalid("choose mode")
	}
	w.state = s.Choose(hasHeader)
	return nil
}

// Click toggles a cell in select_headers or select_data_start.
func (w *Wizard) Click(pos CellPosition) (ClickOutcome, error) {
	switch s := w.state.(type) {
	case HeaderSelection:
		return s.Click(pos), nil
	case DataStartSelection:
		return s.Click(pos), nil
	default:
		return ClickIgnored, w.invalid("click")
	}
}

// ConfirmSelection ends cell selection on either path.
func (w *Wizard) ConfirmSelection() error {
	switch s := w.state.(type) {
	case HeaderSelection:
		next, err := s.Confirm()
		if err != nil {
			return err
		}
		w.state = next
	case DataStartSelection:
		next, err := s.Confirm()
		if err != nil {
			return err
		}
		w.state = next
	default:
		return w.invalid("confirm")
	}
	return nil
}

// SetRowStart answers set_row_start.
func (w *Wizard) SetRowStart(row *int) error {
	s, ok := w.state.(RowStartEntry)
	if !ok {
		return w.invalid("set row start")
	}
	next, err := s.SetRowStart(row)
	if err != nil {
		return err
	}
	w.state = next
	return nil
}

// Reassign changes the field of binding i during configure.
func (w *Wizard) Reassign(i int, field string) error {
	s, ok := w.state.(Review)
	if !ok {
		return w.invalid("reassign")
	}
	return s.Reassign(i, field)
}

// SetBindingRow changes the start row of binding i during configure.
func (w *Wizard) SetBindingRow(i, row int) error {
	s, ok := w.state.(Review)
	if !ok {
		return w.invalid("set binding row")
	}
	return s.SetBindingRow(i, row)
}

// Preview runs extraction during configure.
func (w *Wizard) Preview() (*ExtractionResult, error) {
	s, ok := w.state.(Review)
	if !ok {
		return nil, w.invalid("preview")
	}
	return s.Preview(), nil
}

// Reset returns to select_mode from configure.
func (w *Wizard) Reset() error {
	s, ok := w.state.(Review)
	if !ok {
		return w.invalid("reset")
	}
	w.state = s.Reset()
	return nil
}

// Commit moves from configure to ready_for_extraction.
func (w *Wizard) Commit() (Ready, error) {
	s, ok := w.state.(Review)
	if !ok {
		return Ready{}, w.invalid("commit")
	}
	ready, err := s.Commit()
	if err != nil {
		return Ready{}, err
	}
	w.state = ready
	return ready, nil
}

// ----------------------------------------------------------------------------
// Snapshot
// ----------------------------------------------------------------------------

// BindingView is a binding enriched for display.
type BindingView struct {
	Index      int           `json:"index"`
	Field      string        `json:"field"`
	FieldLabel string        `json:"fieldLabel"`
	Type       string        `json:"type"`
	Required   bool          `json:"required"`
	Label      string        `json:"label,omitempty"`
	Sheet      string        `json:"sheet"`
	Column     int           `json:"column"`
	ColumnName string        `json:"columnName"`
	Row        int           `json:"row"`
	Header     *CellPosition `json:"header,omitempty"`
}

// WizardSnapshot is the client view of a wizard run.
type WizardSnapshot struct {
	Step             Step           `json:"step"`
	HeaderMode       *bool          `json:"headerMode,omitempty"`
	CatalogKey       string         `json:"catalogKey"`
	Sheets           []string       `json:"sheets"`
	Bindings         []BindingView  `json:"bindings"`
	NextField        *Field         `json:"nextField,omitempty"`
	SheetsConfigured []string       `json:"sheetsConfigured"`
	HeaderCells      []CellPosition `json:"headerCells"`
	PreviewErrors    []CellError    `json:"previewErrors,omitempty"`
}

// Snapshot describes the current state for a client.
func (w *Wizard) Snapshot() WizardSnapshot {
	m := w.d.mapping
	c := w.d.catalog

	snap := WizardSnapshot{
		Step:             w.state.Step(),
		CatalogKey:       c.Key,
		Sheets:           w.d.workbook.SheetNames(),
		Bindings:         make([]BindingView, 0, m.Len()),
		SheetsConfigured: m.Sheets(),
		HeaderCells:      m.HeaderCells(),
	}
	if snap.SheetsConfigured == nil {
		snap.SheetsConfigured = []string{}
	}
	if snap.HeaderCells == nil {
		snap.HeaderCells = []CellPosition{}
	}
	if w.d.modeChosen {
		hm := w.d.headerMode
		snap.HeaderMode = &hm
	}
	if f, ok := m.NextUnmapped(c); ok {
		snap.NextField = &f
	}
	if w.d.preview != nil {
		snap.PreviewErrors = w.d.preview.Errors
	}

	for i, b := range m.Bindings() {
		f, ok := c.Field(b.Field)
		if !ok {
			f = Field{Name: b.Field}
		}
		snap.Bindings = append(snap.Bindings, BindingView{
			Index:      i,
			Field:      b.Field,
			FieldLabel: f.DisplayLabel(),
			Type:       f.Type.String(),
			Required:   f.Required,
			Label:      b.Label,
			Sheet:      b.Position.Sheet,
			Column:     b.Position.Column,
			ColumnName: b.Position.ColumnName(),
			Row:        b.Position.Row,
			Header:     b.Header,
		})
	}

	return snap
}
