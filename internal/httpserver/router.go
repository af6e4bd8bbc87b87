package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"carechat/backend/internal/config"
	"carechat/backend/internal/hub"
)

// NewRouter constructs the HTTP router hosting the websocket endpoint and
// the read-only presence API. The CRUD surface of the wider application
// lives elsewhere; this process only serves the messaging gateway.
func NewRouter(cfg *config.Config, h *hub.Hub, gateway *hub.Gateway) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// The request timeout covers the REST surface only. /ws is registered
	// outside this group: its handler runs for the lifetime of the socket,
	// not of an HTTP exchange.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"message": cfg.AppName,
				"version": "1.0.0",
			})
		})

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
		})

		// Presence snapshots for non-socket callers
		r.Route("/api/presence", func(r chi.Router) {
			r.Get("/online", handleOnlineUsers(h))
			r.Get("/users/{userID}", handleUserStatus(h))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", gateway.Handler())

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
