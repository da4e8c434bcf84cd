// Package workbooktest builds in-memory workbooks for tests.
package workbooktest

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/erpflow/internal/workbook"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func build(t testing.TB, rows [][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	return f
}

// Bytes renders rows as an xlsx workbook.
func Bytes(t testing.TB, rows [][]any) []byte {
	t.Helper()
	f := build(t, rows)
	defer f.Close()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// Sheet renders rows as a workbook and reads it back the way uploads are read.
func Sheet(t testing.TB, source string, rows [][]any) *workbook.Sheet {
	t.Helper()
	s, err := workbook.Read(bytes.NewReader(Bytes(t, rows)), source)
	require.NoError(t, err)
	return s
}

// File writes rows as a workbook under dir and returns its path.
func File(t testing.TB, dir, name string, rows [][]any) string {
	t.Helper()
	f := build(t, rows)
	defer f.Close()
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}
