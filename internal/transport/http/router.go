package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bhandaraboard/internal/handler"
	"bhandaraboard/internal/httputil"
	authmw "bhandaraboard/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	ListingHandler      *handler.ListingHandler
	AdminHandler        *handler.AdminHandler
	NotificationHandler *handler.NotificationHandler
	EventsHandler       *handler.EventsHandler
	AuthSecret          string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - anyone can browse and stream
	r.Get("/listings", cfg.ListingHandler.List)
	r.Get("/events", cfg.EventsHandler.Stream)

	// Push subscriptions are device-scoped, not account-scoped
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/vapid-key", cfg.NotificationHandler.VAPIDKey)
		r.Post("/subscriptions", cfg.NotificationHandler.Subscribe)
		r.Delete("/subscriptions", cfg.NotificationHandler.Unsubscribe)
	})

	// Admin routes - gated by the shared password, not a user token
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", cfg.AdminHandler.Login)
		r.Get("/listings", cfg.AdminHandler.List)
		r.Delete("/listings/{id}", cfg.AdminHandler.Delete)
	})

	// Protected routes - require a verified identity token
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.AuthSecret))

		r.Post("/listings", cfg.ListingHandler.Create)
		r.Post("/listings/{id}/upvote", cfg.ListingHandler.Upvote)
	})

	return r
}
