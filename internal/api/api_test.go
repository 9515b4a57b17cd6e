package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/drive"
	"github.com/andresuchdata/bakeplan/internal/ingest"
	"github.com/andresuchdata/bakeplan/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubForecasts struct {
	lastReq   service.GenerateRequest
	confirmed bool
	err       error
}

func (s *stubForecasts) Generate(ctx context.Context, req service.GenerateRequest) (*domain.ForecastBatchResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ForecastBatchResult{Date: req.Date.Format(domain.DateLayout), Succeeded: 1}, nil
}

func (s *stubForecasts) List(ctx context.Context, date time.Time, marketID string) ([]domain.ProductionForecast, error) {
	return nil, s.err
}

func (s *stubForecasts) DeleteForDate(ctx context.Context, date time.Time, marketID string, confirmed bool) (int64, error) {
	s.confirmed = confirmed
	if !confirmed {
		return 0, fmt.Errorf("delete: %w", domain.ErrConfirmationRequired)
	}
	return 4, nil
}

type stubAccuracy struct {
	lastFilter domain.AnalysisFilter
	err        error
}

func (s *stubAccuracy) Comparisons(ctx context.Context, date time.Time, marketID string) ([]domain.ComparisonRecord, error) {
	return []domain.ComparisonRecord{
		{ProductID: "bagel", Status: domain.StatusMatchedExact},
		{ProductID: "scone", Status: domain.StatusPending},
	}, s.err
}

func (s *stubAccuracy) Analyze(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AccuracyAnalysisResult{
		From: filter.From.Format(domain.DateLayout),
		To:   filter.To.Format(domain.DateLayout),
	}, nil
}

func (s *stubAccuracy) Recommendations(ctx context.Context, filter domain.AnalysisFilter) ([]domain.Recommendation, error) {
	s.lastFilter = filter
	return nil, s.err
}

func newTestRouter(f *stubForecasts, a *stubAccuracy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&Services{ForecastService: f, AccuracyService: a}, []string{"*"})
}

func do(t *testing.T, router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(&stubForecasts{}, &stubAccuracy{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := newTestRouter(&stubForecasts{}, &stubAccuracy{})

	w := do(t, router, http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestGenerateForecasts(t *testing.T) {
	f := &stubForecasts{}
	router := newTestRouter(f, &stubAccuracy{})

	w := do(t, router, http.MethodPost, "/api/v1/forecasts/generate",
		`{"date":"2024-06-03","market_id":"m1","weather":"Rainy","service_level":0.8}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "m1", f.lastReq.MarketID)
	assert.Equal(t, domain.WeatherRain, f.lastReq.Weather)
	assert.Equal(t, 0.8, f.lastReq.ServiceLevel)

	var res domain.ForecastBatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "2024-06-03", res.Date)
}

func TestGenerateForecastsValidation(t *testing.T) {
	router := newTestRouter(&stubForecasts{}, &stubAccuracy{})

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/v1/forecasts/generate", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/v1/forecasts/generate", `{"date":"03/06/2024"}`).Code)

	f := &stubForecasts{err: fmt.Errorf("bad: %w", domain.ErrInvalidForecastInput)}
	w := do(t, newTestRouter(f, &stubAccuracy{}), http.MethodPost, "/api/v1/forecasts/generate", `{"date":"2024-06-03"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDeleteForecastsNeedsConfirm(t *testing.T) {
	f := &stubForecasts{}
	router := newTestRouter(f, &stubAccuracy{})

	w := do(t, router, http.MethodDelete, "/api/v1/forecasts?date=2024-06-03", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, f.confirmed)

	w = do(t, router, http.MethodDelete, "/api/v1/forecasts?date=2024-06-03&confirm=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2024-06-03","deleted":4}`, w.Body.String())
}

func TestListForecastsRequiresDate(t *testing.T) {
	router := newTestRouter(&stubForecasts{}, &stubAccuracy{})

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/forecasts", "").Code)

	w := do(t, router, http.MethodGet, "/api/v1/forecasts?date=2024-06-03", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, w.Body.String())
}

func TestComparisonsCountsPending(t *testing.T) {
	w := do(t, newTestRouter(&stubForecasts{}, &stubAccuracy{}), http.MethodGet, "/api/v1/accuracy/comparisons?date=2024-06-03", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total   int `json:"total"`
		Pending int `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 1, body.Pending)
}

func TestAnalysisParsesRange(t *testing.T) {
	a := &stubAccuracy{}
	router := newTestRouter(&stubForecasts{}, a)

	w := do(t, router, http.MethodGet, "/api/v1/accuracy/analysis?from=2024-06-01&to=2024-06-07&market_id=m1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-01", a.lastFilter.From.Format(domain.DateLayout))
	assert.Equal(t, "2024-06-07", a.lastFilter.To.Format(domain.DateLayout))
	assert.Equal(t, "m1", a.lastFilter.MarketID)

	w = do(t, router, http.MethodGet, "/api/v1/accuracy/analysis?to=2024-06-30", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-01", a.lastFilter.From.Format(domain.DateLayout))

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/v1/accuracy/analysis?from=june", "").Code)
}

func TestAnalysisErrorMapping(t *testing.T) {
	a := &stubAccuracy{err: fmt.Errorf("range: %w", domain.ErrInvalidDateRange)}
	w := do(t, newTestRouter(&stubForecasts{}, a), http.MethodGet, "/api/v1/accuracy/analysis?from=2024-06-07&to=2024-06-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	a = &stubAccuracy{err: fmt.Errorf("db down")}
	w = do(t, newTestRouter(&stubForecasts{}, a), http.MethodGet, "/api/v1/accuracy/recommendations", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecommendationsNeverNull(t *testing.T) {
	w := do(t, newTestRouter(&stubForecasts{}, &stubAccuracy{}), http.MethodGet, "/api/v1/accuracy/recommendations?from=2024-06-01&to=2024-06-07", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recommendations":[]}`, w.Body.String())
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"https://a.example, https://b.example", " "})
	assert.False(t, all)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}

type stubIngest struct {
	lastPath   string
	lastPrefix string
	err        error
}

func (s *stubIngest) IngestPrefix(ctx context.Context, prefix string) (*ingest.Summary, error) {
	s.lastPrefix = prefix
	if s.err != nil {
		return nil, s.err
	}
	return &ingest.Summary{Rows: map[ingest.Kind]int{ingest.KindSales: 3}}, nil
}

func (s *stubIngest) IngestDrive(ctx context.Context, folderPath string) (*ingest.Summary, error) {
	s.lastPath = folderPath
	if s.err != nil {
		return nil, s.err
	}
	return &ingest.Summary{Rows: map[ingest.Kind]int{ingest.KindInventory: 2}}, nil
}

func (s *stubIngest) ListDriveFiles(ctx context.Context, folderPath string) ([]*drive.File, error) {
	s.lastPath = folderPath
	return nil, s.err
}

func newIngestRouter(i *stubIngest) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&Services{IngestService: i}, nil)
}

func TestIngestRoutes(t *testing.T) {
	i := &stubIngest{}
	router := newIngestRouter(i)

	w := do(t, router, http.MethodPost, "/api/v1/ingest/drive", `{"path":"bakery/exports"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "bakery/exports", i.lastPath)
	assert.JSONEq(t, `{"files":null,"rows":{"inventory":2},"skipped":0}`, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/v1/ingest/storage", `{"prefix":"drops/"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "drops/", i.lastPrefix)

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, "/api/v1/ingest/storage", `{}`).Code)

	w = do(t, router, http.MethodGet, "/api/v1/ingest/drive/files?path=bakery", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"files":[]}`, w.Body.String())
}

func TestIngestNotConfigured(t *testing.T) {
	router := newIngestRouter(&stubIngest{err: fmt.Errorf("drive: %w", domain.ErrSourceNotConfigured)})

	w := do(t, router, http.MethodPost, "/api/v1/ingest/drive", `{"path":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
