package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// AuthRoutes is the slice of the auth manager the router mounts. Nil
// disables the login endpoints; requests then carry no actor.
type AuthRoutes interface {
	HandleLogin(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
	HandleLogout(w http.ResponseWriter, r *http.Request)
	HandleUserInfo(w http.ResponseWriter, r *http.Request)
}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, authManager AuthRoutes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS allows credentials so the session cookie travels with
	// browser requests.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/newsletters", func(r chi.Router) {
			r.Get("/", h.ListNewsletters)
			r.Post("/", h.CreateNewsletter)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.ViewNewsletter)
				r.Delete("/", h.DeleteNewsletter)

				r.Post("/subscribe", h.Subscribe)
				r.Post("/unsubscribe", h.Unsubscribe)

				r.Get("/issues", h.ListIssues)
				r.Post("/issues", h.AnnounceIssue)

				r.Get("/subscribers", h.ListSubscribers)
				r.Post("/publishers", h.AddPublisher)
				r.Delete("/publishers/{userID}", h.RemovePublisher)
			})
		})

		r.Get("/issues/{id}", h.GetIssue)
	})

	return r
}
