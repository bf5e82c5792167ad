package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/docflow/internal/audit"
	"github.com/frahmantamala/docflow/internal/auth"
	"github.com/frahmantamala/docflow/internal/authz"
	"github.com/frahmantamala/docflow/internal/document"
	"github.com/frahmantamala/docflow/internal/platform/database"
	"github.com/frahmantamala/docflow/internal/transport/middleware"
	"github.com/frahmantamala/docflow/internal/transport/openapi"
	"github.com/frahmantamala/docflow/internal/transport/swagger"
	"github.com/frahmantamala/docflow/internal/user"
	"github.com/frahmantamala/docflow/internal/workflow"
	"github.com/go-chi/chi"
)

// Handlers is everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Auth     *auth.Middleware
	Guard    *authz.Guard
	Authz    *authz.Handler
	Document *document.Handler
	Workflow *workflow.Handler
	User     *user.Handler
	Audit    *audit.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	OpenAPIPath    string
	OpenAPI        *openapi.Document
}

func RegisterAllRoutes(router *chi.Mux, db *database.DB, h Handlers, opts RouterOptions, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	if opts.OpenAPIPath != "" {
		router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, opts.OpenAPIPath)
		})
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.Authenticate)
			if opts.OpenAPI != nil {
				pr.Use(openapi.Middleware(opts.OpenAPI, logger))
			}

			if h.Authz != nil {
				pr.Post("/authz/check", h.Authz.Check)
				pr.Get("/authz/effective", h.Authz.Effective)
			}

			if h.Document != nil {
				pr.Route("/documents", func(dr chi.Router) {
					dr.Post("/", h.Document.CreateDocument)
					dr.Get("/", h.Document.ListDocuments)
					dr.Get("/{id}", h.Document.GetDocument)
					dr.Patch("/{id}", h.Document.UpdateDocument)
					dr.Delete("/{id}", h.Document.DeleteDocument)

					dr.Get("/{id}/grants", h.Document.ListGrants)
					dr.Post("/{id}/grants", h.Document.GrantPermission)
					dr.Delete("/{id}/grants/{grantID}", h.Document.RevokePermission)

					if h.Workflow != nil {
						dr.Get("/{id}/transitions", h.Workflow.AvailableTransitions)
						dr.Post("/{id}/transitions", h.Workflow.Transition)
						dr.Get("/{id}/history", h.Workflow.History)
					}
				})
			}

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/me", h.User.GetCurrentUser)
					ur.Post("/", h.User.CreateUser)
					ur.Get("/{id}", h.User.GetUser)
					ur.Delete("/{id}", h.User.DeactivateUser)
				})
			}

			if h.Audit != nil && h.Guard != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(h.Guard.Middleware(authz.ActionViewAuditLog, authz.ResourceAuditLog, ""))
					ar.Get("/audit", h.Audit.ListEntries)
				})
			}
		})
	})
}
