package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwlens/nwlens/internal/domain/discovery"
	"github.com/nwlens/nwlens/internal/domain/launcher"
	"github.com/nwlens/nwlens/internal/domain/orchestrator"
	"github.com/nwlens/nwlens/internal/domain/ports"
	"github.com/nwlens/nwlens/internal/domain/store"
	"github.com/nwlens/nwlens/internal/infrastructure/logging"
	"github.com/nwlens/nwlens/internal/shared/types"
)

type staticScanner struct {
	apps []types.ApplicationInfo
}

func (s *staticScanner) Discover(ctx context.Context) []types.ApplicationInfo {
	return s.apps
}

func (s *staticScanner) Identify(path string) (types.ApplicationInfo, error) {
	return types.ApplicationInfo{}, discovery.ErrNotRecognized
}

type noopProber struct{}

func (noopProber) Refresh(ctx context.Context, instanceID string) {}

func newTestRouter(t *testing.T, scanner *staticScanner) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewDefault()
	st := store.New(4096, logger)
	pool := ports.NewPool(9600, 8)
	l := launcher.New(pool, st, noopProber{}, 10*time.Millisecond, logger)
	orch := orchestrator.New(scanner, st, l, logger)
	h := NewHandlers(orch, st, logger)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/apps", h.ListApps)
	r.GET("/apps/:id/icon", h.AppIcon)
	r.POST("/discover", h.Discover)
	r.POST("/debug/start", h.StartDebug)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.GET("/sessions/:id/log", h.SessionLog)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, &staticScanner{})

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestDiscoverReturnsApps(t *testing.T) {
	scanner := &staticScanner{apps: []types.ApplicationInfo{
		{ID: "app-a", Name: "Alpha", DiscoveredAt: time.Now()},
	}}
	r, st := newTestRouter(t, scanner)

	w := doJSON(t, r, http.MethodPost, "/discover", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, st.Applications(), 1)

	w = doJSON(t, r, http.MethodGet, "/apps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "app-a")
}

func TestAppIcon(t *testing.T) {
	r, st := newTestRouter(t, &staticScanner{})
	st.AddTransientApplication(types.ApplicationInfo{
		ID:       "app-ico",
		Name:     "Icons",
		Icon:     []byte{0x89, 'P', 'N', 'G'},
		IconMIME: "image/png",
	})
	st.AddTransientApplication(types.ApplicationInfo{ID: "app-bare", Name: "Bare"})

	w := doJSON(t, r, http.MethodGet, "/apps/app-ico/icon", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes())

	w = doJSON(t, r, http.MethodGet, "/apps/app-bare/icon", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/apps/app-missing/icon", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartDebugValidation(t *testing.T) {
	r, _ := newTestRouter(t, &staticScanner{})

	w := doJSON(t, r, http.MethodPost, "/debug/start", StartRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/debug/start", StartRequest{AppID: "a", Path: "/p"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/debug/start", StartRequest{AppID: "app-missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/debug/start", StartRequest{Path: "/not/an/app"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	r, st := newTestRouter(t, &staticScanner{})

	st.AddSession(types.Session{
		InstanceID: "inst-1",
		AppID:      "app-a",
		NodePort:   9600,
		WindowPort: 9601,
		StartedAt:  time.Now(),
	})
	st.AppendLog("inst-1", types.StreamStderr, []byte("Debugger listening\n"))

	w := doJSON(t, r, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inst-1")

	w = doJSON(t, r, http.MethodGet, "/sessions/inst-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "preparing")

	w = doJSON(t, r, http.MethodGet, "/sessions/inst-1/log", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Debugger listening\n", w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/sessions/inst-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/sessions/inst-9/log", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
