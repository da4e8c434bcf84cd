package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/erpflow/internal/api/middleware"
	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/andresuchdata/erpflow/internal/repository"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/andresuchdata/erpflow/internal/workbook/workbooktest"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJournal struct {
	pipeline.Journal
	uploads map[int64]*pipeline.Upload
}

func (j *stubJournal) Create(_ context.Context, u *pipeline.Upload) error {
	u.ID = int64(len(j.uploads) + 1)
	u.Status = pipeline.StatusPending
	cp := *u
	j.uploads[u.ID] = &cp
	return nil
}

func (j *stubJournal) Get(_ context.Context, id int64) (*pipeline.Upload, error) {
	u, ok := j.uploads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (j *stubJournal) Steps(context.Context, int64) ([]pipeline.Step, error) { return nil, nil }

func (j *stubJournal) FindByHash(context.Context, string) (*pipeline.Upload, error) { return nil, nil }

func (j *stubJournal) Fail(_ context.Context, id int64, kind, message string, _ []string) error {
	u := j.uploads[id]
	u.Status = pipeline.StatusFailed
	u.ErrorKind = kind
	u.ErrorMessage = message
	return nil
}

type stubPool struct {
	submitted []pipeline.Job
}

func (p *stubPool) Submit(job pipeline.Job) error {
	p.submitted = append(p.submitted, job)
	return nil
}

func (p *stubPool) Cancel(_ context.Context, id int64) error {
	return domain.ErrNotFound
}

func (p *stubPool) Reprocess(_ context.Context, id int64) (*pipeline.Upload, error) {
	return nil, pipeline.ErrNoArchive
}

type stubAnalytics struct {
	repository.AnalyticsRepository
	gotFilter *domain.DashboardFilter
}

func (s *stubAnalytics) SalesSummary(_ context.Context, f *domain.DashboardFilter) (*domain.SalesSummary, error) {
	s.gotFilter = f
	return &domain.SalesSummary{Documents: 2, NetValue: decimal.NewFromInt(50), TargetAmount: decimal.NewFromInt(100)}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubJournal, *stubPool, *stubAnalytics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	j := &stubJournal{uploads: map[int64]*pipeline.Upload{}}
	p := &stubPool{}
	a := &stubAnalytics{}
	router := NewRouter(&Services{
		Uploads:   service.NewUploadService(j, p, nil, t.TempDir()),
		Analytics: service.NewAnalyticsService(a, nil, decimal.NewFromInt(85)),
		Health:    func(context.Context) error { return nil },
	}, nil)
	return router, j, p, a
}

func multipartUpload(t *testing.T, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func headerRow(t *testing.T, family domain.Family) [][]any {
	t.Helper()
	def, ok := schema.Lookup(family)
	require.True(t, ok)
	var rows [][]any
	for i := 0; i < def.HeaderSkip; i++ {
		rows = append(rows, []any{"Report"})
	}
	var header []any
	for _, h := range def.HeaderNames() {
		header = append(header, h)
	}
	return append(rows, header)
}

func TestUploadAccepted(t *testing.T) {
	router, _, pool, _ := newTestRouter(t)

	content := workbooktest.Bytes(t, headerRow(t, domain.FamilyTargets))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "targets.xlsx", content))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var res service.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(1), res.UploadID)
	assert.Equal(t, domain.FamilyTargets, res.Family)
	assert.Equal(t, pipeline.StatusPending, res.Status)
	assert.Len(t, pool.submitted, 1)
}

func TestUploadUnknownFormat(t *testing.T) {
	router, journal, pool, _ := newTestRouter(t)

	content := workbooktest.Bytes(t, [][]any{{"Foo", "Bar", "Baz"}, {1, 2, 3}})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartUpload(t, "unknown.xlsx", content))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, pipeline.StatusFailed, journal.uploads[1].Status)
	assert.Equal(t, "UnknownFormat", journal.uploads[1].ErrorKind)
	assert.Empty(t, pool.submitted)
}

func TestUploadRequiresFile(t *testing.T) {
	router, _, _, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/upload", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadStatusAndErrors(t *testing.T) {
	router, journal, _, _ := newTestRouter(t)
	journal.uploads[5] = &pipeline.Upload{ID: 5, Status: pipeline.StatusCompleted, UploadedAt: time.Now()}

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/upload/5/status", http.StatusOK},
		{http.MethodGet, "/api/v1/upload/9/status", http.StatusNotFound},
		{http.MethodGet, "/api/v1/upload/abc/status", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/upload/9/cancel", http.StatusNotFound},
		{http.MethodPost, "/api/v1/upload/5/reprocess", http.StatusConflict},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSalesSummaryFilter(t *testing.T) {
	router, _, _, analytics := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales/summary?start_date=2025-01-01&end_date=2025-03-31", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, analytics.gotFilter.StartDate)
	assert.Equal(t, "2025-01-01", analytics.gotFilter.StartDate.Format("2006-01-02"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "50", out["achievement_pct"])
}

func TestDashboardRejectsBadDates(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	for _, q := range []string{"start_date=01-01-2025", "start_date=2025-03-01&end_date=2025-01-01"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sales/summary?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestYieldRequiresCompletedStatuses(t *testing.T) {
	router, _, _, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/yield/summary", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _, _, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewRouter(&Services{Health: func(context.Context) error { return errors.New("db down") }}, nil)
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", ""})
	assert.False(t, all)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

func TestRequestIDEchoed(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
}
