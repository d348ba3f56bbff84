package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/usercache/internal/api/handlers"
	"github.com/isdelr/usercache/internal/services"
	"github.com/isdelr/usercache/internal/views"
	"github.com/isdelr/usercache/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(hub *websocket.Hub, directoryService services.DirectoryServiceProvider, eventService services.EventServiceProvider, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Initialize handlers
	var observer views.Observer
	if hub != nil {
		observer = hub
	}
	userHandler := handlers.NewUserHandler(directoryService, observer)
	eventHandler := handlers.NewEventHandler(eventService)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		if hub != nil {
			wsHandler := handlers.NewWebSocketHandler(hub, originChecker(allowedOrigins))
			r.Get("/ws", wsHandler.Serve)
		}

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Get("/posts", userHandler.Posts)
			})
		})

		r.Get("/events", eventHandler.GetRecent)
	})

	return r
}

// originChecker accepts same-host requests, requests without an Origin header,
// and the configured CORS origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] || set[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
