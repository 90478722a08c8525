package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/transport/http/handler"
	appmiddleware "github.com/lostfound-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps, svcs *Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.UserRepo)

	// 5 requests/second, burst of 10, applied to login and registration.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(svcs.Session)
	userH := handler.NewUserHandler(svcs.User)
	categoryH := handler.NewCategoryHandler(svcs.Category)
	itemH := handler.NewItemHandler(svcs.Item)
	statusH := handler.NewItemStatusHandler(svcs.Item, svcs.Sweeper)
	claimH := handler.NewClaimHandler(svcs.Claim)
	notifH := handler.NewNotificationHandler(svcs.Notification, deps.Hub)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.Get("/categories", categoryH.List)
		r.Get("/categories/{id}", categoryH.Get)
		r.Get("/items/{type}", itemH.List)
		r.Get("/items/{type}/{id}", itemH.Get)
		r.Get("/item-status/enum", statusH.Enum)
		r.Get("/item-status/transitions/{status}", statusH.Transitions)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)
			r.With(sensitiveRL.Limit).Put("/users/me/password", userH.ChangePassword)

			r.Get("/items/mine/{type}", itemH.ListMine)
			r.Post("/items/{type}", itemH.Create)
			r.Put("/items/{type}/{id}", itemH.Update)
			r.Delete("/items/{type}/{id}", itemH.Delete)
			r.Put("/items/{type}/{id}/status", itemH.UpdateStatus)

			r.Post("/claims", claimH.Submit)
			r.Get("/claims/mine", claimH.ListMine)
			r.Get("/claims/to-audit", claimH.ListToAudit)
			r.Get("/claims/{id}", claimH.Get)
			r.Put("/claims/{id}/audit", claimH.Audit)
			r.Put("/claims/{id}/cancel", claimH.Cancel)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Get("/notifications/stream", notifH.Stream)
			r.Put("/notifications/read-all", notifH.MarkAllRead)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)
			r.Delete("/notifications/{id}", notifH.Delete)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/claims", claimH.List)
				r.Get("/users", userH.List)
				r.Put("/users/{id}/status", userH.SetStatus)
				r.Put("/users/{id}/role", userH.SetRole)
				r.Delete("/users/{id}", userH.Delete)

				r.Post("/categories", categoryH.Create)
				r.Put("/categories/{id}", categoryH.Update)
				r.Delete("/categories/{id}", categoryH.Delete)

				r.Get("/item-status/statistics", statusH.Statistics)
				r.Post("/item-status/process-expired", statusH.ProcessExpired)
			})
		})
	})

	return r
}
