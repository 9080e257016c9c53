// Package core provides the business logic for mapping spreadsheet layouts
// onto field catalogs and extracting typed records from workbooks.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the HTTP server, the CLI and tests without
// modification. Workbook parsing and mapping persistence are supplied from
// outside through [WorkbookLoader] and [MappingStore].
//
// # Architecture
//
//   - Catalogs: ordered lists of typed fields, registered at init via
//     [RegisterCatalog] and looked up by key.
//   - Workbook: an in-memory grid per sheet; [ReadColumn] yields one column
//     below a start row.
//   - Mapping: ordered field-to-cell bindings with indexes that keep each
//     field and each cell bound at most once.
//   - Wizard: the state machine that builds a mapping from operator clicks.
//   - Extraction: [Extract] walks the workbook through a mapping, coercing
//     each cell with [Coerce] and reporting failures per cell.
//   - Service: sessions, saved mappings, layout matching and load limiting.
//
// # Catalog Registry
//
//	core.RegisterCatalog(core.Catalog{
//	    Key:   "salary",
//	    Group: "HR",
//	    Label: "Monthly salary sheet",
//	    Fields: []core.Field{
//	        {Name: "fullName", Label: "Full name", Type: core.TypeString, Required: true},
//	        {Name: "netSalary", Label: "Net salary", Type: core.TypeNumber},
//	    },
//	})
//
// # Wizard Flow
//
//  1. [Service.StartSession] loads the workbook and opens a wizard
//  2. The operator chooses header or headerless mode
//  3. Clicks bind the next unmapped field to a column
//  4. The mapping is reviewed, edited and previewed in configure
//  5. [Service.CommitSession] saves it for reuse with [Service.ExtractWithMapping]
//
// [Service.EditSession] reopens a saved mapping against a new workbook,
// starting at step 4. Its commit updates the saved mapping in place.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code prefix for support reference:
//
//   - MAP: mapping invariants and saved mappings
//   - WIZ: wizard step violations
//   - WB, FILE: workbook and upload problems
//   - SES, CAT: sessions and catalogs
//   - DB, UPL, RATE: storage, load slots and throttling
package core
