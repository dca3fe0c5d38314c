package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/itparc/inventory/config"
	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/services"
	"github.com/itparc/inventory/internal/services/servicestest"
	"github.com/itparc/inventory/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func newTestRouter(t *testing.T, pinger fakePinger) http.Handler {
	t.Helper()

	creds, err := auth.New("router-test-key", auth.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)

	db := servicestest.New()
	log := logging.Discard()
	users := services.NewUserService(db.Users(), creds, nil)
	svc := Services{
		Auth:        services.NewAuthService(users, db.Users(), creds),
		Users:       users,
		Equipment:   services.NewEquipmentService(db.Equipment(), db.Users(), nil),
		Maintenance: services.NewMaintenanceService(db.Maintenance(), db.Equipment(), db.Attachments(), nil, nil, log),
	}
	return NewRouter(svc, pinger, config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}}, log)
}

func serve(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bodyMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := serve(newTestRouter(t, fakePinger{}), http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", bodyMessage(t, rec))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	rec := serve(newTestRouter(t, fakePinger{}), http.MethodPatch, "/healthz", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_Healthz(t *testing.T) {
	rec := serve(newTestRouter(t, fakePinger{}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(newTestRouter(t, fakePinger{err: errors.New("down")}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	router := newTestRouter(t, fakePinger{})
	for _, path := range []string{"/api/users", "/api/equipments", "/api/maintenances/1"} {
		rec := serve(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "no token provided", bodyMessage(t, rec), path)
	}
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(t, fakePinger{})

	rec := serve(router, http.MethodOptions, "/api/equipments", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = serve(router, http.MethodGet, "/healthz", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type closeTracker struct {
	storage.Backend
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestShutdown_ClosesStorage(t *testing.T) {
	backend := &closeTracker{}
	s := &Server{
		httpServer: &http.Server{},
		blobs:      storage.NewStorage(backend),
		log:        logging.Discard(),
	}

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, backend.closed)
}
