package api

import (
	"context"
	"net/http"
	"time"

	"blog_api/internal/api/handler"
	"blog_api/internal/api/middleware"
	"blog_api/internal/app/service"
	"blog_api/internal/common"
	"blog_api/internal/platform/logging"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Services struct {
	Auth  *service.AuthService
	Users *service.UserService
	Blogs *service.BlogService
}

func NewRouter(services Services, logger logging.Logger, checks ...HealthCheck) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithErrorMessage(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithSuccess(w, http.StatusOK, "Welcome to the blog API", nil)
	})
	r.Get("/health", healthHandler(logger, checks))

	requireAuth := middleware.Authenticator(services.Auth, logger)

	userHandler := handler.NewUserHandler(services.Auth, services.Users, requireAuth, logger)
	r.Route("/users", userHandler.RegisterRoutes)

	blogHandler := handler.NewBlogHandler(services.Blogs, requireAuth, logger)
	r.Route("/blogs", blogHandler.RegisterRoutes)

	return r
}

func healthHandler(logger logging.Logger, checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.Error(ctx, "health check failed", "dependency", c.Name, "error", err)
				common.RespondWithErrorMessage(w, http.StatusServiceUnavailable, c.Name+" unavailable")
				return
			}
		}
		w.Write([]byte("OK"))
	}
}
