package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/healthradar/internal/api"
	mw "github.com/kiranshivaraju/healthradar/internal/api/middleware"
	"github.com/kiranshivaraju/healthradar/internal/cache"
	"github.com/kiranshivaraju/healthradar/internal/store/storetest"
	"github.com/kiranshivaraju/healthradar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) SetJobStatus(_ context.Context, _ uuid.UUID, _ string, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetJobStatus(_ context.Context, _ uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) Incr(_ context.Context, _ string) (int64, error) { return 1, nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

const readKey = "hr_read_0123456789abcdef"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st := storetest.New()
	hash, err := bcrypt.GenerateFromPassword([]byte(readKey), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.CreateAPIKey(context.Background(), &models.APIKey{
		ID:        uuid.New(),
		WorkerID:  uuid.New(),
		KeyHash:   string(hash),
		KeyPrefix: readKey[:mw.KeyPrefixLen],
		Scopes:    []string{models.ScopeRead},
	}))

	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(st),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
		ListCases: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)["code"].(string)
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/uploads"},
		{"GET", "/api/v1/me"},
		{"GET", "/api/v1/cases"},
		{"GET", "/api/v1/cases/aggregate"},
		{"DELETE", "/api/v1/cases/municipality"},
		{"DELETE", "/api/v1/cases"},
		{"POST", "/api/v1/analysis"},
		{"POST", "/api/v1/analysis/broadcast"},
		{"GET", "/api/v1/analysis/latest"},
		{"GET", "/api/v1/jobs/" + uuid.NewString()},
		{"GET", "/api/v1/uploads/counter"},
		{"DELETE", "/api/v1/uploads/counter"},
		{"POST", "/api/v1/admin/workers"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INVALID_TOKEN", errCode(t, w))
		})
	}
}

func TestRouter_ScopedEndpoints_RejectReadOnlyKey(t *testing.T) {
	router := newTestRouter(t)

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/uploads"},
		{"DELETE", "/api/v1/cases/municipality"},
		{"DELETE", "/api/v1/cases"},
		{"DELETE", "/api/v1/uploads/counter"},
		{"POST", "/api/v1/admin/workers"},
		{"DELETE", "/api/v1/admin/keys/" + uuid.NewString()},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			req.Header.Set("Authorization", "Bearer "+readKey)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, "FORBIDDEN", errCode(t, w))
		})
	}
}

func TestRouter_ReadKeyReachesReadRoutes(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/cases", nil)
	req.Header.Set("Authorization", "Bearer "+readKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
}

func TestRouter_UnwiredHandlerIsNotImplemented(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/analysis/latest", nil)
	req.Header.Set("Authorization", "Bearer "+readKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "NOT_IMPLEMENTED", errCode(t, w))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

var _ cache.Cache = (*stubCache)(nil)
