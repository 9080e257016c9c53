package core

import (
	"sort"
	"time"
)

// PreviewSummary contains the summary counts for an extraction preview.
type PreviewSummary struct {
	TotalRows        int   `json:"totalRows"`
	ValidRows        int   `json:"validRows"`
	ErrorRows        int   `json:"errorRows"`
	ErrorCells       int   `json:"errorCells"`
	FieldsWithErrors []int `json:"fieldsWithErrors"` // Binding indexes, ascending
}

// ErrorPreview is one record that has at least one failed cell.
type ErrorPreview struct {
	RecordIndex int         `json:"recordIndex"`
	Values      Record      `json:"values"`
	Errors      []CellError `json:"errors"`
}

// PreviewResponse is what the operator sees before committing a mapping.
type PreviewResponse struct {
	Summary          PreviewSummary    `json:"summary"`
	Result           *ExtractionResult `json:"result"`
	ErrorSamples     []ErrorPreview    `json:"errorSamples"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
}

// Sample limits
const (
	maxErrorSamples = 20
)

// BuildPreview summarizes an extraction result.
func BuildPreview(result *ExtractionResult, elapsed time.Duration) *PreviewResponse {
	resp := &PreviewResponse{
		Summary: PreviewSummary{
			TotalRows:        len(result.Records),
			ErrorCells:       len(result.Errors),
			FieldsWithErrors: []int{},
		},
		Result:           result,
		ErrorSamples:     []ErrorPreview{},
		ProcessingTimeMs: elapsed.Milliseconds(),
	}

	byRecord := recordErrors(result)
	resp.Summary.ErrorRows = len(byRecord)
	resp.Summary.ValidRows = resp.Summary.TotalRows - resp.Summary.ErrorRows

	fields := result.ErrorFieldIndexes()
	sort.Ints(fields)
	resp.Summary.FieldsWithErrors = append(resp.Summary.FieldsWithErrors, fields...)

	indexes := make([]int, 0, len(byRecord))
	for i := range byRecord {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	for _, i := range indexes {
		if len(resp.ErrorSamples) >= maxErrorSamples {
			break
		}
		resp.ErrorSamples = append(resp.ErrorSamples, ErrorPreview{
			RecordIndex: i,
			Values:      result.Records[i],
			Errors:      byRecord[i],
		})
	}

	return resp
}

// recordErrors groups cell errors by record index.
func recordErrors(result *ExtractionResult) map[int][]CellError {
	out := make(map[int][]CellError)
	for _, e := range result.Errors {
		out[e.Record] = append(out[e.Record], e)
	}
	return out
}
