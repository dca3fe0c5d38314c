package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/services"
)

// UserHandler exposes account administration. Every route expects
// RequireAuth and RequireAdmin in front of it.
type UserHandler struct {
	userService *services.UserService
	log         logging.Logger
}

func NewUserHandler(userService *services.UserService, log logging.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, log logging.Logger) {
	handler := NewUserHandler(userService, log)

	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.NewUser
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.userService.Create(r.Context(), actor.ID, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.userService.Update(r.Context(), actor.ID, id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeMessage(w, "user deleted successfully")
}
