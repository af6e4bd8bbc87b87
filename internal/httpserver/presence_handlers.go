package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"carechat/backend/internal/hub"
)

// handleOnlineUsers returns a snapshot of currently online user ids.
func handleOnlineUsers(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"users": h.OnlineUsers(),
		})
	}
}

// handleUserStatus reports the aggregated online state of one user.
func handleUserStatus(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if userID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "userID is required"})
			return
		}
		status := hub.StatusOffline
		if h.IsOnline(userID) {
			status = hub.StatusOnline
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id": userID,
			"status":  status,
		})
	}
}
