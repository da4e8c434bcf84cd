package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubJournal implements the journal calls the upload flow makes; anything
// else panics through the nil embedded interface.
type stubJournal struct {
	pipeline.Journal
	created []pipeline.Upload
	failed  map[int64]string
	byHash  map[string]*pipeline.Upload
}

func newStubJournal() *stubJournal {
	return &stubJournal{failed: map[int64]string{}, byHash: map[string]*pipeline.Upload{}}
}

func (j *stubJournal) Create(_ context.Context, u *pipeline.Upload) error {
	u.ID = int64(len(j.created) + 1)
	u.Status = pipeline.StatusPending
	j.created = append(j.created, *u)
	return nil
}

func (j *stubJournal) FindByHash(_ context.Context, hash string) (*pipeline.Upload, error) {
	return j.byHash[hash], nil
}

func (j *stubJournal) Fail(_ context.Context, id int64, kind, message string, _ []string) error {
	j.failed[id] = kind
	return nil
}

type stubPool struct {
	jobs []pipeline.Job
	err  error
}

func (p *stubPool) Submit(job pipeline.Job) error {
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *stubPool) Cancel(context.Context, int64) error { return nil }

func (p *stubPool) Reprocess(context.Context, int64) (*pipeline.Upload, error) { return nil, nil }

type stubArchive struct {
	keys []string
}

func (a *stubArchive) Store(_ context.Context, fileName, srcPath string) (string, error) {
	if _, err := os.Stat(srcPath); err != nil {
		return "", err
	}
	key := "uploads/" + fileName
	a.keys = append(a.keys, key)
	return key, nil
}

func headerSheet(t *testing.T, family domain.Family) *workbook.Sheet {
	t.Helper()
	def, ok := schema.Lookup(family)
	require.True(t, ok)
	var rows [][]string
	for i := 0; i < def.HeaderSkip; i++ {
		rows = append(rows, []string{"Report"})
	}
	return &workbook.Sheet{Rows: append(rows, def.HeaderNames())}
}

func newUploadFixture(t *testing.T, sheet *workbook.Sheet) (*UploadService, *stubJournal, *stubPool, *stubArchive) {
	t.Helper()
	j := newStubJournal()
	p := &stubPool{}
	a := &stubArchive{}
	svc := NewUploadService(j, p, a, t.TempDir())
	svc.open = func(string) (*workbook.Sheet, error) { return sheet, nil }
	svc.now = func() time.Time { return time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC) }
	return svc, j, p, a
}

func TestAcceptQueuesClassifiedWorkbook(t *testing.T) {
	svc, j, p, a := newUploadFixture(t, headerSheet(t, domain.FamilyBilling))

	content := "billing workbook bytes"
	res, err := svc.Accept(context.Background(), UploadRequest{Name: "Billing May.xlsx", Reader: strings.NewReader(content)})
	require.NoError(t, err)

	assert.Equal(t, domain.FamilyBilling, res.Family)
	assert.Equal(t, pipeline.StatusPending, res.Status)
	assert.Nil(t, res.DuplicateOf)

	require.Len(t, j.created, 1)
	entry := j.created[0]
	sum := md5.Sum([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), entry.FileHash)
	assert.Equal(t, int64(len(content)), entry.FileSize)
	assert.Equal(t, "Billing May.xlsx", entry.OriginalName)
	assert.Equal(t, ".xlsx", filepath.Ext(entry.FileName))
	assert.Equal(t, a.keys[0], entry.ObjectKey)

	require.Len(t, p.jobs, 1)
	assert.Equal(t, entry.ID, p.jobs[0].UploadID)
	data, err := os.ReadFile(p.jobs[0].Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestAcceptUnknownFormatFailsEntry(t *testing.T) {
	sheet := &workbook.Sheet{Rows: [][]string{{"Foo", "Bar", "Baz"}}}
	svc, j, p, _ := newUploadFixture(t, sheet)

	res, err := svc.Accept(context.Background(), UploadRequest{Name: "random.xlsx", Reader: strings.NewReader("x")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownFormat))
	require.NotNil(t, res)
	assert.Equal(t, pipeline.StatusFailed, res.Status)
	assert.Equal(t, "UnknownFormat", j.failed[res.UploadID])
	assert.Empty(t, p.jobs)
}

func TestAcceptUnreadableWorkbook(t *testing.T) {
	svc, j, _, _ := newUploadFixture(t, nil)
	svc.open = func(string) (*workbook.Sheet, error) { return nil, errors.New("zip: not a valid zip file") }

	res, err := svc.Accept(context.Background(), UploadRequest{Name: "broken.xlsx", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, domain.ErrUnknownFormat)
	assert.Equal(t, "UnknownFormat", j.failed[res.UploadID])
}

func TestAcceptReportsDuplicate(t *testing.T) {
	svc, j, _, _ := newUploadFixture(t, headerSheet(t, domain.FamilyTargets))
	sum := md5.Sum([]byte("same"))
	j.byHash[hex.EncodeToString(sum[:])] = &pipeline.Upload{ID: 41}

	res, err := svc.Accept(context.Background(), UploadRequest{Name: "targets.xlsx", Reader: strings.NewReader("same")})
	require.NoError(t, err)
	require.NotNil(t, res.DuplicateOf)
	assert.Equal(t, int64(41), *res.DuplicateOf)
}

func TestAcceptPassesSnapshotDate(t *testing.T) {
	svc, _, p, _ := newUploadFixture(t, headerSheet(t, domain.FamilyARAging))
	snap := time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)

	_, err := svc.Accept(context.Background(), UploadRequest{Name: "ar.xlsx", Reader: strings.NewReader("ar"), SnapshotDate: &snap})
	require.NoError(t, err)
	require.Len(t, p.jobs, 1)
	assert.Equal(t, snap, p.jobs[0].SnapshotDate)
}

func TestAcceptQueueFullFailsEntry(t *testing.T) {
	svc, j, p, _ := newUploadFixture(t, headerSheet(t, domain.FamilyBilling))
	p.err = pipeline.ErrQueueFull

	_, err := svc.Accept(context.Background(), UploadRequest{Name: "b.xlsx", Reader: strings.NewReader("b")})
	assert.ErrorIs(t, err, pipeline.ErrQueueFull)
	_, failed := j.failed[1]
	assert.True(t, failed)
}

func TestRegisterKeepsExistingObjectKey(t *testing.T) {
	svc, j, p, a := newUploadFixture(t, headerSheet(t, domain.FamilyBilling))

	job, res, err := svc.Register(context.Background(), UploadRequest{
		Name:      "billing.xlsx",
		Reader:    strings.NewReader("b"),
		ObjectKey: "uploads/old.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, res.UploadID, job.UploadID)
	assert.Equal(t, "uploads/old.xlsx", j.created[0].ObjectKey)
	assert.Empty(t, a.keys)
	assert.Empty(t, p.jobs)
}
