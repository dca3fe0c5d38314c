package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/services"
)

// EquipmentHandler provides HTTP handlers for the equipment registry.
type EquipmentHandler struct {
	equipmentService *services.EquipmentService
	log              logging.Logger
}

func NewEquipmentHandler(equipmentService *services.EquipmentService, log logging.Logger) *EquipmentHandler {
	return &EquipmentHandler{equipmentService: equipmentService, log: log}
}

// EquipmentRouter registers equipment routes. Reads are open to any
// authenticated caller and scoped by the service; writes require an admin.
func EquipmentRouter(r chi.Router, equipmentService *services.EquipmentService, log logging.Logger) {
	handler := NewEquipmentHandler(equipmentService, log)

	r.Get("/", handler.ListEquipment)
	r.With(RequireAdmin).Post("/", handler.CreateEquipment)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.GetEquipment)
		r.With(RequireAdmin).Put("/", handler.UpdateEquipment)
		r.With(RequireAdmin).Delete("/", handler.DeleteEquipment)
	})
}

func (h *EquipmentHandler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.equipmentService.List(r.Context(), actor)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *EquipmentHandler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	equipment, err := h.equipmentService.Get(r.Context(), actor, id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, equipment)
}

func (h *EquipmentHandler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.EquipmentInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.equipmentService.Create(r.Context(), actor, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *EquipmentHandler) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.EquipmentUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.equipmentService.Update(r.Context(), actor, id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *EquipmentHandler) DeleteEquipment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.equipmentService.Delete(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeMessage(w, "equipment deleted successfully")
}
