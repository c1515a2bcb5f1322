// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChoeSuBin129/weather-date-mvp/internal/catalog"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/config"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/errors"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/common/logger"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/matcher"
	"github.com/ChoeSuBin129/weather-date-mvp/internal/models"
)

// ==========================
// Fixtures
// ==========================

func testPlaces() []models.Place {
	return []models.Place{
		{
			ID: "p001", Name: "스타벅스 광화문점", Type: "cafe", District: "종로구",
			Indoor: true, Noise: 3, Romantic: 2, BudgetLevel: 2, WalkScore: 1,
			ExtrovertFriendly: models.FlagYes, Tags: []string{"프랜차이즈", "작업", "실내"},
		},
		{
			ID: "p002", Name: "어니언 안국", Type: "cafe", District: "종로구",
			Indoor: true, Noise: 2, Romantic: 3, BudgetLevel: 3, WalkScore: 2,
			ExtrovertFriendly: models.FlagNo, Tags: []string{"베이커리", "감성", "데이트"},
		},
	}
}

func newTestServer(t *testing.T, provider catalog.Provider, mutate func(*Options)) *Server {
	t.Helper()
	opts := Options{
		Matcher: matcher.New(matcher.DefaultWeights(), logger.NewTestLogger(t)),
		Catalog: provider,
		Server: config.ServerConfig{
			CORS: config.CORS{AllowedOrigins: []string{"*"}, AllowCredentials: true},
		},
		TopK:    5,
		Logger:  logger.NewTestLogger(t),
		Version: "test",
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewServer(opts)
}

func loadedCatalog(t *testing.T, places []models.Place) catalog.Provider {
	t.Helper()
	cat, err := catalog.New("test", places)
	require.NoError(t, err)
	return catalog.Fixed(cat, nil)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

type panicMatcher struct{}

func (panicMatcher) Recommend([]models.Place, *models.Preferences, int) ([]models.ScoredPlace, error) {
	panic("boom")
}

// ==========================
// Recommend
// ==========================

func TestRecommend_Success(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	rec := do(s, http.MethodPost, "/api/recommend",
		`{"district":"종로구","drinking":"no","noise":0.4,"romantic":"0.6","budget":3,"walk":""}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body models.RecommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Timestamp)
	require.Len(t, body.Recommendations, 2)

	top := body.Recommendations[0]
	assert.Equal(t, "p002", top.PlaceID)
	assert.Equal(t, 0.75, top.Score)
	assert.Equal(t, "베이커리 감성 데이트", top.Tags)
	assert.Contains(t, top.Reason, "디저트 맛집")
	assert.Equal(t, "p001", body.Recommendations[1].PlaceID)
}

func TestRecommend_TrailingSlashAndUnspecified(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	rec := do(s, http.MethodPost, "/api/recommend/",
		`{"district":"any","personality":"unspecified","drinking":"unspecified","extra":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.RecommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Recommendations, 2)
}

func TestRecommend_EmptyCatalog(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, nil), nil)

	rec := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, mustField(t, rec, "recommendations"))
}

func TestRecommend_TopKLimit(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), func(o *Options) { o.TopK = 1 })

	rec := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.RecommendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Recommendations, 1)
}

func TestRecommend_InvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "null", body: "null"},
		{name: "array", body: "[]"},
		{name: "not json", body: "{bad"},
		{name: "unknown personality", body: `{"personality":"ambivert"}`},
		{name: "unknown drinking", body: `{"drinking":"sometimes"}`},
		{name: "object as number", body: `{"noise":{"v":1}}`},
		{name: "bool as number", body: `{"budget":true}`},
	}

	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, "/api/recommend", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeError(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, "Invalid preferences", body.Error)
			assert.Equal(t, string(errors.ErrCodeInvalidPreferences), body.Code)
			assert.NotEmpty(t, body.Details)
		})
	}
}

func TestRecommend_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	big := `{"district":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := do(s, http.MethodPost, "/api/recommend", big)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body too large", decodeError(t, rec).Details)
}

func TestRecommend_CatalogUnavailable(t *testing.T) {
	loadErr := errors.NewDataUnavailableError("csv:missing.csv", stderrors.New("no such file"))
	s := newTestServer(t, catalog.Fixed(nil, loadErr), nil)

	rec := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeError(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Equal(t, string(errors.ErrCodeDataUnavailable), body.Code)
}

func TestRecommend_NoCatalogProvider(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(errors.ErrCodeDataUnavailable), decodeError(t, rec).Code)
}

func TestRecommend_PanicRecovered(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), func(o *Options) { o.Matcher = panicMatcher{} })

	rec := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Equal(t, string(errors.ErrCodeInternal), body.Code)
}

// ==========================
// Methods and CORS
// ==========================

func TestRecommend_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := do(s, method, "/api/recommend", "")
			require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

			body := decodeError(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, "Method not allowed", body.Error)
			assert.Equal(t, string(errors.ErrCodeMethodNotAllowed), body.Code)
		})
	}
}

func TestRecommend_PlainOptions(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	rec := do(s, http.MethodOptions, "/api/recommend", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRecommend_Preflight(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/recommend", nil)
	req.Header.Set("Origin", "https://date.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://date.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecommend_CORSOnActualRequest(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader(`{}`))
	req.Header.Set("Origin", "https://date.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://date.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

// ==========================
// Middleware
// ==========================

func TestRequestID(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = do(s, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), func(o *Options) {
		o.Server.RateLimit = config.RateLimit{Enabled: true, Requests: 1, Window: 60000}
	})

	first := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := do(s, http.MethodPost, "/api/recommend", `{}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, second).Code)

	// health endpoints are not limited
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/health", "").Code)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)

	rec := do(s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeError(t, rec).Success)
}

// ==========================
// Health endpoints
// ==========================

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := do(s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"test"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	failing := func(ctx context.Context) error { return stderrors.New("redis: connection refused") }
	passing := func(ctx context.Context) error { return nil }

	tests := []struct {
		name       string
		provider   func(t *testing.T) catalog.Provider
		checks     []ReadyCheck
		wantStatus int
		wantError  string
	}{
		{
			name:       "loaded catalog",
			provider:   func(t *testing.T) catalog.Provider { return loadedCatalog(t, testPlaces()) },
			checks:     []ReadyCheck{passing},
			wantStatus: http.StatusOK,
		},
		{
			name:       "no provider",
			provider:   func(t *testing.T) catalog.Provider { return nil },
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "catalog not configured",
		},
		{
			name: "catalog failed to load",
			provider: func(t *testing.T) catalog.Provider {
				return catalog.Fixed(nil, errors.NewDataUnavailableError("csv", stderrors.New("missing")))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Place catalog could not be loaded",
		},
		{
			name:       "dependency down",
			provider:   func(t *testing.T) catalog.Provider { return loadedCatalog(t, testPlaces()) },
			checks:     []ReadyCheck{passing, failing},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "redis: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.provider(t), func(o *Options) { o.ReadyChecks = tt.checks })

			rec := do(s, http.MethodGet, "/ready", "")
			require.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.wantError != "" {
				assert.Equal(t, "not ready", body["status"])
				assert.Equal(t, tt.wantError, body["error"])
				return
			}
			assert.Equal(t, "ready", body["status"])
			assert.EqualValues(t, 2, body["places"])
			assert.Equal(t, "test", body["source"])
			loadedAt, ok := body["loaded_at"].(string)
			require.True(t, ok)
			_, err := time.Parse(time.RFC3339, loadedAt)
			assert.NoError(t, err)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, loadedCatalog(t, testPlaces()), nil)
	do(s, http.MethodPost, "/api/recommend", `{}`)

	rec := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recommend_requests_total")
}

func mustField(t *testing.T, rec *httptest.ResponseRecorder, field string) string {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	raw, ok := body[field]
	require.True(t, ok, "missing field %s", field)
	return string(raw)
}
