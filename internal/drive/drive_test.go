package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/andresuchdata/erpflow/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	files   []*File
	content map[string]string
}

func (s *fakeSource) ListFiles(context.Context, string) ([]*File, error) { return s.files, nil }

func (s *fakeSource) GetFile(_ context.Context, id string) (*File, error) {
	for _, f := range s.files {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *fakeSource) DownloadFile(_ context.Context, f *File, w io.Writer) error {
	_, err := io.WriteString(w, s.content[f.ID])
	return err
}

type fakeAcceptor struct {
	names  []string
	bodies [][]byte
	err    error
}

func (a *fakeAcceptor) Accept(_ context.Context, req service.UploadRequest) (*service.UploadResult, error) {
	body, err := io.ReadAll(req.Reader)
	if err != nil {
		return nil, err
	}
	a.names = append(a.names, req.Name)
	a.bodies = append(a.bodies, body)
	res := &service.UploadResult{UploadID: int64(len(a.names)), Status: pipeline.StatusPending}
	if a.err != nil {
		res.Status = pipeline.StatusFailed
		return res, a.err
	}
	return res, nil
}

func TestImportable(t *testing.T) {
	assert.True(t, importable(&File{Name: "billing.XLSX"}))
	assert.True(t, importable(&File{Name: "targets.csv"}))
	assert.True(t, importable(&File{Name: "Sheet", MimeType: mimeSpreadsheet}))
	assert.False(t, importable(&File{Name: "notes.pdf"}))
	assert.False(t, importable(&File{Name: "archive", MimeType: mimeFolder}))
}

func TestUploadName(t *testing.T) {
	assert.Equal(t, "billing.xlsx", uploadName(&File{Name: "billing.xlsx"}))
	assert.Equal(t, "targets.xlsx", uploadName(&File{Name: "targets.csv"}))
	assert.Equal(t, "AR Aging.xlsx", uploadName(&File{Name: "AR Aging", MimeType: mimeSpreadsheet}))
}

func TestIngestFolderSkipsOtherFiles(t *testing.T) {
	src := &fakeSource{
		files: []*File{
			{ID: "1", Name: "billing.xlsx"},
			{ID: "2", Name: "readme.txt"},
			{ID: "3", Name: "ar", MimeType: mimeSpreadsheet},
		},
		content: map[string]string{"1": "xlsx-1", "3": "xlsx-3"},
	}
	acc := &fakeAcceptor{}

	results, err := NewIngestService(src, acc).IngestFolder(context.Background(), "folder")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"billing.xlsx", "ar.xlsx"}, acc.names)
	assert.Equal(t, "xlsx-1", string(acc.bodies[0]))
}

func TestIngestFolderKeepsGoingOnFailure(t *testing.T) {
	src := &fakeSource{
		files:   []*File{{ID: "1", Name: "a.xlsx"}, {ID: "2", Name: "b.xlsx"}},
		content: map[string]string{"1": "a", "2": "b"},
	}
	acc := &fakeAcceptor{err: domain.ErrUnknownFormat}

	results, err := NewIngestService(src, acc).IngestFolder(context.Background(), "folder")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NotEmpty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
}

func TestCSVIsConvertedToWorkbook(t *testing.T) {
	src := &fakeSource{
		files:   []*File{{ID: "1", Name: "targets.csv"}},
		content: map[string]string{"1": "Salesman Name,Semester,Year,Target\nBUDI,1,2025,1500000\n"},
	}
	acc := &fakeAcceptor{}

	_, err := NewIngestService(src, acc).IngestFile(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, acc.bodies, 1)

	sheet, err := workbook.Read(bytes.NewReader(acc.bodies[0]), "targets.xlsx")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(sheet.Rows), 2)
	assert.Equal(t, []string{"Salesman Name", "Semester", "Year", "Target"}, sheet.Rows[0])
	assert.Equal(t, "BUDI", sheet.Rows[1][0])
}

func TestIngestFileRejectsNonWorkbook(t *testing.T) {
	src := &fakeSource{files: []*File{{ID: "9", Name: "photo.png"}}}
	_, err := NewIngestService(src, &fakeAcceptor{}).IngestFile(context.Background(), "9")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not a workbook"))
}

func TestWatcherImportsOnlyChangedFiles(t *testing.T) {
	src := &fakeSource{
		files:   []*File{{ID: "1", Name: "a.xlsx", ModifiedTime: "t1"}},
		content: map[string]string{"1": "a"},
	}
	acc := &fakeAcceptor{}
	w := NewWatcher(src, NewIngestService(src, acc), "folder", 0)
	ctx := context.Background()

	first, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)

	src.files[0].ModifiedTime = "t2"
	third, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 1)
	assert.Len(t, acc.names, 2)
}
