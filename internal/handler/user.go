package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/eventhub/internal/service"
)

// UserHandler serves the signed-in user's profile and favorites. Every
// route is behind RequireAuth.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HTTP: GET /api/users/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	u, err := h.users.Profile(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// HTTP: PUT /api/users/profile
// REQUEST BODY: {"username": "...", "email": "..."} (either may be omitted)
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), actor, in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeData(w, http.StatusOK, u)
}

// HTTP: POST /api/users/favorites/{eventId}
func (h *UserHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	res, err := h.users.ToggleFavorite(r.Context(), actor, chi.URLParam(r, "eventId"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	msg := "Event removed from favorites"
	if res.Added {
		msg = "Event added to favorites"
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: msg, Data: res.Favorites})
}

// HTTP: GET /api/users/favorites
func (h *UserHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	events, err := h.users.Favorites(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeList(w, events)
}
