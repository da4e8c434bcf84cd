package loader

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/rowhash"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/workbook"
)

// Record is one parsed data row ready to be written to a raw table.
type Record struct {
	SourceRow int
	RowHash   string
	// Values is aligned with the definition's Columns; nil means null.
	// Non-nil entries are string, int64, decimal.Decimal or time.Time.
	Values []any
	Raw    map[string]string
}

type assignment struct {
	declared []int          // sheet column index per declared column, -1 when absent
	extras   map[int]string // undeclared sheet columns by index
}

// HeaderRow returns the index of the family's header row in s.
func HeaderRow(s *workbook.Sheet, def schema.Definition) (int, error) {
	first := s.FirstNonBlank()
	if first < 0 {
		return 0, domain.ErrEmptyHeader
	}
	row := first + def.HeaderSkip
	if row >= len(s.Rows) {
		return 0, fmt.Errorf("%w: header row %d is beyond the sheet", domain.ErrHeaderMismatch, row+1)
	}
	return row, nil
}

func assign(s *workbook.Sheet, def schema.Definition, headerRow int) (assignment, error) {
	a := assignment{declared: make([]int, len(def.Columns)), extras: map[int]string{}}
	header := s.Rows[headerRow]

	if def.Positional {
		width := 0
		for _, r := range s.Rows[headerRow:] {
			if len(r) > width {
				width = len(r)
			}
		}
		var missing []string
		for i, c := range def.Columns {
			if i < width {
				a.declared[i] = i
				continue
			}
			a.declared[i] = -1
			if c.Required {
				missing = append(missing, c.Header)
			}
		}
		if len(missing) > 0 {
			return a, fmt.Errorf("%w: sheet has %d columns, missing %s", domain.ErrHeaderMismatch, width, strings.Join(missing, ", "))
		}
		for i := len(def.Columns); i < width; i++ {
			name := ""
			if i < len(header) {
				name = strings.TrimSpace(header[i])
			}
			if name == "" {
				name = fmt.Sprintf("Column %d", i+1)
			}
			a.extras[i] = name
		}
		return a, nil
	}

	index := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var missing []string
	used := map[int]bool{}
	for i, c := range def.Columns {
		idx, ok := index[c.Header]
		if !ok {
			a.declared[i] = -1
			if c.Required {
				missing = append(missing, c.Header)
			}
			continue
		}
		a.declared[i] = idx
		used[idx] = true
	}
	if len(missing) > 0 {
		return a, fmt.Errorf("%w: missing required columns %s", domain.ErrHeaderMismatch, strings.Join(missing, ", "))
	}
	for name, idx := range index {
		if !used[idx] {
			a.extras[idx] = name
		}
	}
	return a, nil
}

// Parse assigns columns, coerces typed values and hashes every data row of s.
// Rows repeating an earlier row hash are counted as skipped; rows failing a
// required column are counted as failed with a diagnostic.
func Parse(s *workbook.Sheet, def schema.Definition, maxErrors int) ([]Record, Counters, error) {
	var c Counters
	headerRow, err := HeaderRow(s, def)
	if err != nil {
		return nil, c, err
	}
	a, err := assign(s, def, headerRow)
	if err != nil {
		return nil, c, err
	}

	declared := def.HeaderNames()
	extraIdx := make([]int, 0, len(a.extras))
	for idx := range a.extras {
		extraIdx = append(extraIdx, idx)
	}
	sort.Ints(extraIdx)

	seen := map[string]struct{}{}
	var records []Record
	for r := headerRow + 1; r < len(s.Rows); r++ {
		row := s.Rows[r]
		if workbook.IsBlank(row) {
			continue
		}
		rec, rowErr := parseRow(row, r+1, def, a, extraIdx)
		if rowErr != nil {
			c.Failed++
			c.addError(maxErrors, rowErr.Error())
			continue
		}
		rec.RowHash = rowhash.HashRow(declared, hashValues(rec, def))
		if _, dup := seen[rec.RowHash]; dup {
			c.Skipped++
			continue
		}
		seen[rec.RowHash] = struct{}{}
		records = append(records, rec)
	}
	return records, c, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseRow(row []string, sourceRow int, def schema.Definition, a assignment, extraIdx []int) (Record, error) {
	rec := Record{
		SourceRow: sourceRow,
		Values:    make([]any, len(def.Columns)),
		Raw:       map[string]string{},
	}
	for i, col := range def.Columns {
		text := cellAt(row, a.declared[i])
		if text == "" {
			if col.Required {
				return rec, fmt.Errorf("row %d: column %q: required value is empty", sourceRow, col.Header)
			}
			continue
		}
		rec.Raw[col.Header] = text
		v, err := coerce(col, text)
		if err != nil {
			if col.Required {
				return rec, fmt.Errorf("row %d: column %q: %v", sourceRow, col.Header, err)
			}
			continue
		}
		rec.Values[i] = v
	}
	for _, idx := range extraIdx {
		if text := cellAt(row, idx); text != "" {
			rec.Raw[a.extras[idx]] = text
		}
	}
	return rec, nil
}

// hashValues is the raw text with date columns rendered canonically, so the
// same date stored as a serial or as text hashes identically.
func hashValues(rec Record, def schema.Definition) map[string]string {
	out := make(map[string]string, len(rec.Raw))
	for k, v := range rec.Raw {
		out[k] = v
	}
	for i, col := range def.Columns {
		t, ok := rec.Values[i].(time.Time)
		if !ok {
			continue
		}
		switch col.Type {
		case schema.Date:
			out[col.Header] = rowhash.FormatDate(t)
		case schema.DateTime:
			out[col.Header] = rowhash.FormatDateTime(t)
		}
	}
	return out
}
