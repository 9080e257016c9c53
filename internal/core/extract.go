package core

// Extract walks the workbook through the mapping and returns one record per
// data row.
//
// Each binding contributes the column below its start row. Rows are aligned
// by offset from each binding's own start row, so bindings may start on
// different rows. Extraction stops before the first row in which every
// binding's raw value is empty; rows before it are kept even when some of
// their cells fail coercion. A failed cell stores its error message as the
// record value and adds a CellError at its absolute position.
//
// Extract assumes the mapping has already passed ValidateMapping.
func Extract(wb *Workbook, m *Mapping, c *Catalog) *ExtractionResult {
	bindings := m.Bindings()

	result := &ExtractionResult{
		Fields:  make([]string, len(bindings)),
		Records: []Record{},
		Errors:  []CellError{},
	}

	columns := make([][]any, len(bindings))
	types := make([]DataType, len(bindings))
	maxRows := 0

	for i, b := range bindings {
		result.Fields[i] = b.Field
		columns[i] = ReadColumn(wb, b.Position.Sheet, b.Position.Column, b.Position.Row)
		if len(columns[i]) > maxRows {
			maxRows = len(columns[i])
		}

		types[i] = TypeString
		if f, ok := c.Field(b.Field); ok {
			types[i] = f.Type
		}
	}

	for offset := 0; offset < maxRows; offset++ {
		record := make(Record, len(bindings))
		var rowErrors []CellError
		allEmpty := true

		for i, b := range bindings {
			var raw any
			if offset < len(columns[i]) {
				raw = columns[i][offset]
			}
			if !IsEmpty(raw) {
				allEmpty = false
			}

			val, err := Coerce(raw, types[i])
			if err != nil {
				pos := b.Position
				pos.Row += offset
				rowErrors = append(rowErrors, CellError{
					Position:   pos,
					FieldIndex: i,
					Field:      b.Field,
					Record:     len(result.Records),
					Message:    err.Error(),
				})
				record[b.Field] = err.Error()
				continue
			}
			record[b.Field] = val
		}

		if allEmpty {
			break
		}

		result.Records = append(result.Records, record)
		result.Errors = append(result.Errors, rowErrors...)
	}

	result.Succeeded = len(result.Errors) == 0
	return result
}
