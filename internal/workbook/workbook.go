// Package workbook reads the first sheet of an OOXML workbook into memory.
package workbook

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet is the cell text of a workbook's first sheet. Cells hold raw values:
// dates stay Excel serials and numbers keep their stored text.
type Sheet struct {
	Name   string
	Source string
	Rows   [][]string
}

// Open reads the first sheet of the workbook at path.
func Open(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return readFirstSheet(f, filepath.Base(path))
}

// Read reads the first sheet of a workbook streamed from r. source names the
// file for diagnostics and report-date detection.
func Read(r io.Reader, source string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", source, err)
	}
	defer f.Close()
	return readFirstSheet(f, source)
}

func readFirstSheet(f *excelize.File, source string) (*Sheet, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", source)
	}
	name := sheets[0]

	rows, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", name, err)
	}
	defer rows.Close()

	s := &Sheet{Name: name, Source: source}
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d from %s: %w", len(s.Rows)+1, source, err)
		}
		s.Rows = append(s.Rows, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows in %s: %w", source, err)
	}
	return s, nil
}

// IsBlank reports whether every cell of row is empty after trimming.
func IsBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FirstNonBlank returns the index of the first non-blank row, or -1.
func (s *Sheet) FirstNonBlank() int {
	for i, r := range s.Rows {
		if !IsBlank(r) {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell at (row, col), or "" when out of range.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[row][col])
}

var reportDateLabels = []string{"report date", "key date", "snapshot date"}

var fileDateToken = regexp.MustCompile(`(\d{4})-?(\d{2})-?(\d{2})`)

// ReportDate looks for an embedded reporting date: a labelled cell in the rows
// above headerRow, then a date token in the source file name.
func (s *Sheet) ReportDate(headerRow int) (time.Time, bool) {
	if headerRow > len(s.Rows) {
		headerRow = len(s.Rows)
	}
	for r := 0; r < headerRow; r++ {
		row := s.Rows[r]
		for c, cell := range row {
			rest, ok := matchLabel(cell)
			if !ok {
				continue
			}
			if rest != "" {
				if d, ok := ParseDate(rest); ok {
					return dateOnly(d), true
				}
			}
			for n := c + 1; n < len(row); n++ {
				v := strings.TrimSpace(row[n])
				if v == "" {
					continue
				}
				if d, ok := ParseDate(v); ok {
					return dateOnly(d), true
				}
				break
			}
		}
	}
	return FileNameDate(s.Source)
}

// matchLabel reports whether cell starts with a report-date label and returns
// any text following the label and its separator.
func matchLabel(cell string) (string, bool) {
	cell = strings.TrimSpace(cell)
	lower := strings.ToLower(cell)
	for _, l := range reportDateLabels {
		if strings.HasPrefix(lower, l) {
			rest := strings.TrimLeft(strings.TrimSpace(cell[len(l):]), ":=")
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// FileNameDate extracts a YYYYMMDD or YYYY-MM-DD token from a file name.
func FileNameDate(name string) (time.Time, bool) {
	for _, m := range fileDateToken.FindAllStringSubmatch(filepath.Base(name), -1) {
		d, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3])
		if err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
