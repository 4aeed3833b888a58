package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/internal/api"
	mw "github.com/kiranshivaraju/fuelhaul/internal/api/middleware"
	"github.com/kiranshivaraju/fuelhaul/internal/cache"
	"github.com/kiranshivaraju/fuelhaul/internal/store"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- stub store: one key per scope set, no jobs ---

type stubStore struct {
	keys []*models.APIKey
}

func (s *stubStore) Ping(_ context.Context) error { return nil }
func (s *stubStore) GetDefaultDepot(_ context.Context) (*models.Depot, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}
func (s *stubStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *stubStore) ListAPIKeys(_ context.Context, _ uuid.UUID) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *stubStore) RevokeAPIKey(_ context.Context, _ uuid.UUID, _ uuid.UUID) error { return nil }
func (s *stubStore) CreateJob(_ context.Context, _ *models.Job) error              { return nil }
func (s *stubStore) GetJob(_ context.Context, _ uuid.UUID) (*models.Job, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) PutJob(_ context.Context, _ *models.Job) error { return store.ErrNotFound }
func (s *stubStore) ListJobs(_ context.Context, _ store.JobFilter) ([]*models.Job, int, error) {
	return nil, 0, nil
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                          { return nil }
func (c *stubCache) Ping(_ context.Context) error                                      { return nil }
func (c *stubCache) SetJobSnapshot(_ context.Context, _ *models.Job, _ time.Duration) error {
	return nil
}
func (c *stubCache) GetJobSnapshot(_ context.Context, _ uuid.UUID) (*models.Job, bool, error) {
	return nil, false, nil
}
func (c *stubCache) DeleteJobSnapshot(_ context.Context, _ uuid.UUID) error { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

// --- router tests ---

const (
	driverKey   = "fh_driver_router_key_0001"
	dispatchKey = "fh_dispa_router_key_0002"
)

func stubKey(t *testing.T, raw string, scopes ...string) *models.APIKey {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.APIKey{
		ID:        uuid.New(),
		DepotID:   uuid.New(),
		Name:      raw[:8],
		KeyHash:   string(h),
		KeyPrefix: raw[:mw.KeyPrefixLen],
		Scopes:    scopes,
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	s := &stubStore{keys: []*models.APIKey{
		stubKey(t, driverKey, models.ScopeDriver),
		stubKey(t, dispatchKey, models.ScopeDispatch),
	}}
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(s),
		RateLimit: mw.NewRateLimit(&stubCache{}, 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("# metrics\n"))
		}),
	})
}

func serve(router http.Handler, method, path, rawKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if rawKey != "" {
		req.Header.Set("Authorization", "Bearer "+rawKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	w := serve(newTestRouter(t), "GET", "/api/v1/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MetricsEndpoint_Public(t *testing.T) {
	w := serve(newTestRouter(t), "GET", "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# metrics")
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter(t)
	jobPath := "/api/v1/jobs/" + uuid.NewString()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/jobs"},
		{"GET", "/api/v1/jobs"},
		{"GET", jobPath},
		{"GET", jobPath + "/stops"},
		{"GET", jobPath + "/next-stop"},
		{"GET", jobPath + "/steps/previous"},
		{"POST", jobPath + "/route/preview"},
		{"POST", jobPath + "/start-trip"},
		{"POST", jobPath + "/warehouse"},
		{"POST", jobPath + "/pickup"},
		{"POST", jobPath + "/route"},
		{"POST", jobPath + "/delivery/begin"},
		{"POST", jobPath + "/stops/B1/arrival"},
		{"POST", jobPath + "/stops/B1/delivery"},
		{"POST", jobPath + "/depot-arrival"},
		{"POST", "/api/v1/admin/keys"},
		{"GET", "/api/v1/admin/keys"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			w := serve(router, ep.method, ep.path, "")

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_ScopeEnforcement(t *testing.T) {
	router := newTestRouter(t)
	jobPath := "/api/v1/jobs/" + uuid.NewString()

	tests := []struct {
		name   string
		key    string
		method string
		path   string
		want   int
	}{
		{"driver cannot dispatch", driverKey, "POST", "/api/v1/jobs", http.StatusForbidden},
		{"driver cannot list", driverKey, "GET", "/api/v1/jobs", http.StatusForbidden},
		{"dispatch can dispatch", dispatchKey, "POST", "/api/v1/jobs", http.StatusNotImplemented},
		{"driver can read job", driverKey, "GET", jobPath, http.StatusNotImplemented},
		{"dispatch can read job", dispatchKey, "GET", jobPath, http.StatusNotImplemented},
		{"driver can act", driverKey, "POST", jobPath + "/start-trip", http.StatusNotImplemented},
		{"dispatch cannot act", dispatchKey, "POST", jobPath + "/start-trip", http.StatusForbidden},
		{"dispatch cannot deliver", dispatchKey, "POST", jobPath + "/stops/B1/delivery", http.StatusForbidden},
		{"driver is not admin", driverKey, "GET", "/api/v1/admin/keys", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, tt.key)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	w := serve(newTestRouter(t), "GET", "/api/v1/nonexistent", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

var _ store.Store = (*stubStore)(nil)
var _ cache.Cache = (*stubCache)(nil)
