package workbook

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/sheetmap/internal/core"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// loadCSV reads a CSV file into a one-sheet workbook. Every cell is text;
// coercion decides what it means.
func loadCSV(r io.Reader) (*core.Workbook, error) {
	reader := csv.NewReader(cleanText(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]any
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidWorkbook, err)
		}

		row := make([]any, len(record))
		for i, v := range record {
			if v != "" {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}

	return core.NewWorkbook(&core.Sheet{Name: CSVSheetName, Rows: rows}), nil
}

// cleanText drops a leading UTF-8 BOM, which Excel writes on CSV export,
// and replaces invalid UTF-8 with '?'.
func cleanText(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{r: br}
}

// utf8Sanitizer replaces invalid UTF-8 line by line. Lines are complete, so
// multi-byte runes never straddle a read.
type utf8Sanitizer struct {
	r   *bufio.Reader
	buf []byte
	err error
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		line, err := s.r.ReadString('\n')
		s.buf = []byte(strings.ToValidUTF8(line, "?"))
		s.err = err
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}
