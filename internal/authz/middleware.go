package authz

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/transport"
	"github.com/go-chi/chi"
)

// Guard wraps routes with a resolver check. It runs after authentication.
type Guard struct {
	*transport.BaseHandler
	resolver *Resolver
}

func NewGuard(baseHandler *transport.BaseHandler, resolver *Resolver) *Guard {
	return &Guard{BaseHandler: baseHandler, resolver: resolver}
}

// Check denies the request unless the actor may perform action on the
// resource. idParam names the chi URL parameter holding the resource id; an
// empty idParam checks the action without a resource.
func (g *Guard) Check(next http.HandlerFunc, action Action, resourceType ResourceType, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := internal.ActorIDFromContext(r.Context())
		if !ok {
			g.Logger.Warn("authorization check failed: actor not found in context")
			g.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		req := Request{
			ActorID:      actorID,
			Action:       action.String(),
			ResourceType: string(resourceType),
			Context:      map[string]any{"method": r.Method, "path": r.URL.Path},
		}
		if idParam != "" {
			id, err := strconv.ParseInt(chi.URLParam(r, idParam), 10, 64)
			if err != nil || id <= 0 {
				g.WriteError(w, http.StatusBadRequest, "invalid "+idParam)
				return
			}
			req.ResourceID = &id
		}

		decision := g.resolver.CheckPermission(r.Context(), req)
		if !decision.Allowed {
			g.Logger.WarnContext(r.Context(), "access denied",
				"actor_id", actorID,
				"action", req.Action,
				"reason", decision.Reason)
			g.HandleServiceError(w, denialError(decision))
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (g *Guard) Middleware(action Action, resourceType ResourceType, idParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.Check(next.ServeHTTP, action, resourceType, idParam)
	}
}

// DenialError converts a negative decision into the error callers return.
func DenialError(d Decision) error {
	return denialError(d)
}

func denialError(d Decision) *internal.AppError {
	if d.Retryable {
		return internal.NewPersistenceError(d.Reason, nil, true)
	}
	if d.Source == SourceSystem {
		return internal.NewPersistenceError(d.Reason, nil, false)
	}
	return internal.NewForbiddenError(d.Reason, internal.ErrCodeAccessDenied)
}
