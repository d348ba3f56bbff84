package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/usercache/internal/models"
	"github.com/isdelr/usercache/internal/services"
	"github.com/isdelr/usercache/internal/views"
	"github.com/rs/zerolog/log"
)

// UserHandler serves the user list and posts screens.
type UserHandler struct {
	service  services.DirectoryServiceProvider
	observer views.Observer
}

// NewUserHandler creates a new UserHandler. observer may be nil.
func NewUserHandler(service services.DirectoryServiceProvider, observer views.Observer) *UserHandler {
	return &UserHandler{service: service, observer: observer}
}

// List enters the user list screen and returns its snapshot, filtered by the q parameter.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	view := views.NewUserList(h.service, h.observer)
	defer view.Close()
	view.SetQuery(r.URL.Query().Get("q"))

	if err := view.Enter(r.Context()); err != nil {
		log.Debug().Err(err).Msg("User list request ended before the load completed")
		return
	}

	snap := view.Snapshot()
	if snap.Outcome != views.OutcomeSuccess && snap.Outcome != views.OutcomeEmpty {
		log.Warn().Str("outcome", string(snap.Outcome)).Msg("User list ended without data")
	}
	writeJSON(w, statusFor(snap.Outcome), snap)
}

// Get returns a single cached user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("user_id", id).Msg("Failed to get user")
		http.Error(w, "Failed to get user", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Posts enters the posts screen of a user. The user card comes from the cache when
// available; posts are always fetched.
func (h *UserHandler) Posts(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			log.Warn().Err(err).Int64("user_id", id).Msg("Failed to read cached user for posts")
		}
		user = models.User{ID: id}
	}

	view := views.NewPostList(h.service, user, h.observer)
	defer view.Close()
	if err := view.Enter(r.Context()); err != nil {
		log.Debug().Err(err).Int64("user_id", id).Msg("Posts request ended before the load completed")
		return
	}

	snap := view.Snapshot()
	writeJSON(w, statusFor(snap.Outcome), snap)
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// statusFor maps a view outcome to an HTTP status. Empty data is not an error.
func statusFor(outcome views.Outcome) int {
	switch outcome {
	case views.OutcomeSuccess, views.OutcomeEmpty:
		return http.StatusOK
	case views.OutcomeNetworkError, views.OutcomeDecodeError, views.OutcomeInvalidURL:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
