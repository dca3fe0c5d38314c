package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/itparc/inventory/internal/auth"
	"github.com/itparc/inventory/internal/handlers"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/services"
	"github.com/itparc/inventory/internal/services/servicestest"
	"github.com/itparc/inventory/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type api struct {
	router http.Handler
	auth   *services.AuthService
	blobs  *servicestest.Blobs
}

func newAPI(t *testing.T) *api {
	t.Helper()

	creds, err := auth.New("handler-test-key", auth.WithHashCost(bcrypt.MinCost))
	require.NoError(t, err)

	db := servicestest.New()
	blobs := servicestest.NewBlobs()
	log := logging.Discard()

	users := services.NewUserService(db.Users(), creds, nil)
	authService := services.NewAuthService(users, db.Users(), creds)
	equipment := services.NewEquipmentService(db.Equipment(), db.Users(), nil)
	maintenance := services.NewMaintenanceService(db.Maintenance(), db.Equipment(), db.Attachments(), blobs, nil, log)

	requireAuth := handlers.RequireAuth(authService, log)
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, log)
	})
	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth, handlers.RequireAdmin)
		handlers.UserRouter(r, users, log)
	})
	r.Route("/equipments", func(r chi.Router) {
		r.Use(requireAuth)
		handlers.EquipmentRouter(r, equipment, log)
	})
	r.Route("/maintenances", func(r chi.Router) {
		r.Use(requireAuth)
		handlers.MaintenanceRouter(r, maintenance, log)
	})

	return &api{router: r, auth: authService, blobs: blobs}
}

// session registers username with role and returns it signed in.
func (a *api) session(t *testing.T, username string, role types.Role) services.Session {
	t.Helper()
	s, err := a.auth.Register(context.Background(), services.NewUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw-" + username,
		Role:     role,
	})
	require.NoError(t, err)
	return s
}

func (a *api) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.serve(req)
}

func (a *api) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handlers.ErrorResponse](t, rec).Message
}
