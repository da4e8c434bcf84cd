package drive

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/rs/zerolog/log"
)

// Source is the Drive surface the importer needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, f *File, w io.Writer) error
}

// Acceptor takes a workbook into the ingestion pipeline.
// *service.UploadService is the production Acceptor.
type Acceptor interface {
	Accept(ctx context.Context, req service.UploadRequest) (*service.UploadResult, error)
}

// IngestService hands Drive files to the upload pipeline as if they had been
// uploaded over HTTP.
type IngestService struct {
	source  Source
	uploads Acceptor
}

func NewIngestService(source Source, uploads Acceptor) *IngestService {
	return &IngestService{source: source, uploads: uploads}
}

// Result is the outcome of importing one Drive file.
type Result struct {
	FileID string                `json:"file_id"`
	Name   string                `json:"name"`
	Upload *service.UploadResult `json:"upload,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// importable reports whether f can become a workbook upload.
func importable(f *File) bool {
	if f.MimeType == mimeSpreadsheet {
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// uploadName is the name the journal records; exported Sheets and converted
// CSVs become .xlsx.
func uploadName(f *File) string {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == ".xlsx" {
		return f.Name
	}
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".xlsx"
}

func (s *IngestService) IngestFile(ctx context.Context, fileID string) (*Result, error) {
	f, err := s.source.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !importable(f) {
		return nil, fmt.Errorf("file %s is not a workbook", f.Name)
	}
	return s.ingest(ctx, f)
}

func (s *IngestService) ingest(ctx context.Context, f *File) (*Result, error) {
	pr, pw := io.Pipe()
	go func() {
		var err error
		if strings.EqualFold(filepath.Ext(f.Name), ".csv") && f.MimeType != mimeSpreadsheet {
			err = s.downloadCSV(ctx, f, pw)
		} else {
			err = s.source.DownloadFile(ctx, f, pw)
		}
		pw.CloseWithError(err)
	}()

	res, err := s.uploads.Accept(ctx, service.UploadRequest{Name: uploadName(f), Reader: pr})
	// drain so the download goroutine can finish when Accept stopped early
	_, _ = io.Copy(io.Discard, pr)
	out := &Result{FileID: f.ID, Name: f.Name, Upload: res}
	if err != nil {
		out.Error = err.Error()
		return out, err
	}
	return out, nil
}

func (s *IngestService) downloadCSV(ctx context.Context, f *File, w io.Writer) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.source.DownloadFile(ctx, f, pw))
	}()
	defer pr.Close()
	return convertCSVToXLSX(pr, w)
}

// IngestFolder imports every workbook of a folder. A failing file is reported
// in its Result and does not stop the others.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) ([]*Result, error) {
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if !importable(f) {
			continue
		}
		res, err := s.ingest(ctx, f)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("Drive: import failed")
		}
		results = append(results, res)
	}
	return results, nil
}
