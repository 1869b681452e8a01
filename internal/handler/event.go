package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/service"
)

// EventHandler exposes events and their social interactions over HTTP.
//
// Handlers only translate: path/query/body in, envelope out. Authorization
// and validation are the service's job, so every rule holds even for a
// caller that bypasses the router's middleware.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// likeResponse is shared by every like toggle endpoint.
type likeResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likesCount"`
}

func writeLike(w http.ResponseWriter, subject string, res service.LikeResult) {
	msg := subject + " unliked"
	if res.Liked {
		msg = subject + " liked"
	}
	writeJSON(w, http.StatusOK, likeResponse{
		Success:    true,
		Message:    msg,
		Liked:      res.Liked,
		LikesCount: res.LikesCount,
	})
}

// HandleList returns events filtered by the optional query parameters
// category, search and date (upcoming|past).
//
// HTTP: GET /api/events?category=technology&search=go&date=upcoming
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := h.events.ParseEventFilter(q.Get("category"), q.Get("search"), q.Get("date"))

	events, err := h.events.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeList(w, events)
}

// HTTP: GET /api/events/{id}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, ev)
}

// HTTP: POST /api/events
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var in service.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	ev, err := h.events.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusCreated, ev)
}

// HTTP: PUT /api/events/{id}
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var patch service.EventPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	ev, err := h.events.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, ev)
}

// HTTP: DELETE /api/events/{id}
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.events.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeDeleted(w)
}

// HTTP: POST /api/events/{id}/like
func (h *EventHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	res, err := h.events.ToggleLike(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeLike(w, "Event", res)
}

// HTTP: POST /api/events/{id}/comments
// REQUEST BODY: {"content": "..."}
func (h *EventHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var in service.CommentInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	comment, err := h.events.AddComment(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusCreated, comment)
}

// HTTP: DELETE /api/events/{id}/comments/{commentId}
func (h *EventHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	err := h.events.DeleteComment(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeDeleted(w)
}

// HTTP: POST /api/events/{id}/comments/{commentId}/like
func (h *EventHandler) HandleToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	res, err := h.events.ToggleCommentLike(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeLike(w, "Comment", res)
}

type ratingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	service.RatingResult
}

// HandleRate records the caller's 1–5 rating for an event that has already
// taken place.
//
// HTTP: POST /api/events/{id}/rate
// REQUEST BODY: {"rating": 4}
func (h *EventHandler) HandleRate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var in service.RatingInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	res, err := h.events.SubmitRating(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{
		Success:      true,
		Message:      "Event rated successfully",
		RatingResult: res,
	})
}

// requireIdentity fetches the identity set by auth.RequireAuth. On routes
// mounted behind that middleware it is always present; a missing identity
// means a routing mistake, answered with 401 rather than a panic.
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "not authorized, no token"})
		return auth.Identity{}, false
	}
	return id, true
}
