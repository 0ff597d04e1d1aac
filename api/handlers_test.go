package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlas_scraper/config"
	"atlas_scraper/models"
	"atlas_scraper/scraper"
)

type stubService struct {
	calls   int
	outcome *scraper.Outcome
	err     error
}

func (s *stubService) Analyze(_ context.Context, req scraper.AnalyzeRequest) (*scraper.Outcome, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubHistory struct {
	logs []models.RunLog
	err  error
}

func (h *stubHistory) RecentRuns(limit int) ([]models.AnalysisRun, error) {
	return nil, h.err
}

func (h *stubHistory) RunLogs(runID int64, limit int) ([]models.RunLog, error) {
	if h.err != nil {
		return nil, h.err
	}
	return h.logs, nil
}

func serverConfig() config.ServerConfig {
	return config.ServerConfig{
		RateLimitMax:    25,
		RateLimitWindow: 15 * time.Minute,
		RequestTimeout:  60 * time.Second,
	}
}

func newTestRouter(service *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	handler := NewHandler(service, nil, log)
	return NewRouter(serverConfig(), handler, log)
}

func analysisBody(t *testing.T, platform, url string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{"platform": platform, "url": url})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func postAnalysis(router *gin.Engine, body *bytes.Buffer, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/property-analysis", body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func okOutcome() *scraper.Outcome {
	return &scraper.Outcome{
		Analysis: &models.Analysis{
			PropertyRecord: models.PropertyRecord{
				Address: "Calle Mayor 1, Madrid",
				Price:   300000,
			},
		},
		Confidence: models.ConfidenceReal,
	}
}

func TestAnalysisSuccess(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "idealista", "https://www.idealista.com/inmueble/1/"), "token123")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool            `json:"success"`
		Data    models.Analysis `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 300000.0, resp.Data.Price)
	assert.Equal(t, 1, service.calls)
}

func TestMissingBearerTokenIs401(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "idealista", "https://www.idealista.com/inmueble/1/"), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, service.calls)
}

func TestUnknownPlatformIs400AndNeverReachesService(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "zillow", "https://www.zillow.com/homes/1"), "token123")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, service.calls)
}

func TestMismatchedURLIs400(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "idealista", "https://www.fotocasa.es/vivienda/1"), "token123")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, service.calls)
}

func TestPlatformIsCaseInsensitive(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "  Idealista ", "https://www.idealista.com/inmueble/1/"), "token123")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, service.calls)
}

func TestRateLimitIs429(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	var last int
	for i := 0; i < 26; i++ {
		w := postAnalysis(router, analysisBody(t, "idealista", "https://www.idealista.com/inmueble/1/"), "token123")
		last = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, 25, service.calls)
}

func TestTimeoutIs504(t *testing.T) {
	service := &stubService{err: context.DeadlineExceeded}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "idealista", "https://www.idealista.com/inmueble/1/"), "token123")

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestInternalErrorIsSanitized(t *testing.T) {
	service := &stubService{err: assert.AnError}
	router := newTestRouter(service)

	w := postAnalysis(router, analysisBody(t, "idealista", "https://www.idealista.com/inmueble/1/"), "token123")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestHealthNeedsNoAuth(t *testing.T) {
	router := newTestRouter(&stubService{outcome: okOutcome()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunLogsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	history := &stubHistory{logs: []models.RunLog{
		{ID: 1, Level: models.LogLevelWarn, Message: "captcha detected, degrading to fallback data"},
	}}
	handler := NewHandler(&stubService{outcome: okOutcome()}, history, log)
	router := NewRouter(serverConfig(), handler, log)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/7/logs", nil)
	req.Header.Set("Authorization", "Bearer token123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "captcha detected")
}

func TestRunLogsRejectsBadID(t *testing.T) {
	router := newTestRouter(&stubService{outcome: okOutcome()})

	req := httptest.NewRequest(http.MethodGet, "/api/runs/abc/logs", nil)
	req.Header.Set("Authorization", "Bearer token123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLegacyWebscraperRoute(t *testing.T) {
	service := &stubService{outcome: okOutcome()}
	router := newTestRouter(service)

	body := analysisBody(t, "idealista", "https://www.idealista.com/inmueble/1/")
	req := httptest.NewRequest(http.MethodPost, "/api/webscraper", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, service.calls)
}
