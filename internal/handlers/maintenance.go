package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itparc/inventory/internal/logging"
	"github.com/itparc/inventory/internal/services"
)

const (
	formFieldFile      = "file"
	maxMultipartMemory = 8 << 20
	// multipartOverhead leaves room for boundaries and part headers around
	// a file of the maximum size.
	multipartOverhead = 1 << 20
)

// MaintenanceHandler provides HTTP handlers for the maintenance log and its
// attachments.
type MaintenanceHandler struct {
	maintenanceService *services.MaintenanceService
	log                logging.Logger
}

func NewMaintenanceHandler(maintenanceService *services.MaintenanceService, log logging.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService, log: log}
}

// MaintenanceRouter registers maintenance routes. GET /{id} lists the history
// of equipment id while PUT and DELETE /{id} address a single record.
func MaintenanceRouter(r chi.Router, maintenanceService *services.MaintenanceService, log logging.Logger) {
	handler := NewMaintenanceHandler(maintenanceService, log)

	r.Post("/", handler.CreateRecord)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.ListRecords)
		r.With(RequireAdmin).Put("/", handler.UpdateRecord)
		r.With(RequireAdmin).Delete("/", handler.DeleteRecord)

		r.Route("/attachments", func(r chi.Router) {
			r.Get("/", handler.ListAttachments)
			r.Post("/", handler.UploadAttachment)
			r.Get("/{attachmentID}", handler.DownloadAttachment)
			r.With(RequireAdmin).Delete("/{attachmentID}", handler.DeleteAttachment)
		})
	})
}

func (h *MaintenanceHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	equipmentID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.maintenanceService.ListByEquipment(r.Context(), actor, equipmentID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *MaintenanceHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.MaintenanceInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.maintenanceService.Create(r.Context(), actor, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *MaintenanceHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.MaintenanceUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.maintenanceService.Update(r.Context(), actor, id, req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *MaintenanceHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.maintenanceService.Delete(r.Context(), actor, id); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeMessage(w, "maintenance record deleted successfully")
}

func (h *MaintenanceHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	recordID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attachments, err := h.maintenanceService.ListAttachments(r.Context(), actor, recordID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

func (h *MaintenanceHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	recordID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAttachmentSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %d MiB", services.MaxAttachmentSize>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	attachment, err := h.maintenanceService.AddAttachment(r.Context(), actor, recordID, services.AttachmentUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachment)
}

func (h *MaintenanceHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	recordID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	attachmentID, err := parseID(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta, body, err := h.maintenanceService.OpenAttachment(r.Context(), actor, recordID, attachmentID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn(r.Context(), "attachment download interrupted",
			"attachment_id", attachmentID,
			"error", err,
		)
	}
}

func (h *MaintenanceHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	recordID, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	attachmentID, err := parseID(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.maintenanceService.DeleteAttachment(r.Context(), actor, recordID, attachmentID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeMessage(w, "attachment deleted successfully")
}
