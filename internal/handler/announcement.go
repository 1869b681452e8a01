package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/eventhub/internal/service"
)

// AnnouncementHandler serves admin announcements. Reads are public; writes
// are mounted behind RequireRole(admin) and re-checked by the service.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
	logger        *slog.Logger
}

func NewAnnouncementHandler(announcements *service.AnnouncementService, logger *slog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements, logger: logger}
}

// HTTP: GET /api/announcements
func (h *AnnouncementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.announcements.List(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeList(w, list)
}

// HTTP: GET /api/announcements/{id}
func (h *AnnouncementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.announcements.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// HTTP: POST /api/announcements
// REQUEST BODY: {"title": "...", "content": "...", "eventId": "optional"}
func (h *AnnouncementHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var in service.AnnouncementInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	a, err := h.announcements.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusCreated, a)
}

// HTTP: PUT /api/announcements/{id}
func (h *AnnouncementHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var patch service.AnnouncementPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	a, err := h.announcements.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

// HTTP: DELETE /api/announcements/{id}
func (h *AnnouncementHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.announcements.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeDeleted(w)
}

// HTTP: POST /api/announcements/{id}/like
func (h *AnnouncementHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	res, err := h.announcements.ToggleLike(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeLike(w, "Announcement", res)
}
