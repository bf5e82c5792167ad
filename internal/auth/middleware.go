package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/frahmantamala/docflow/internal"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	"github.com/frahmantamala/docflow/internal/transport"
	"github.com/frahmantamala/docflow/pkg/logger"
)

type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*userDatamodel.User, error)
}

type Middleware struct {
	*transport.BaseHandler
	validator TokenValidator
	users     UserLookup
}

func NewMiddleware(baseHandler *transport.BaseHandler, validator TokenValidator, users UserLookup) *Middleware {
	return &Middleware{
		BaseHandler: baseHandler,
		validator:   validator,
		users:       users,
	}
}

// Authenticate resolves the bearer token to an active user and stores the
// actor id in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractTokenFromHeader(r)
		if token == "" {
			m.HandleServiceError(w, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			m.Logger.Warn("token validation failed", "error", err)
			m.HandleServiceError(w, err)
			return
		}
		actorID, err := claims.ActorID()
		if err != nil {
			m.HandleServiceError(w, err)
			return
		}

		u, err := m.users.GetUser(r.Context(), actorID)
		if err != nil {
			if errors.Is(err, internal.ErrUserNotFound) {
				m.HandleServiceError(w, internal.ErrInvalidToken)
				return
			}
			m.Logger.Error("auth middleware: failed to load user", "actor_id", actorID, "error", err)
			m.HandleServiceError(w, err)
			return
		}
		if !u.Active {
			m.HandleServiceError(w, internal.ErrUserInactive)
			return
		}

		ctx := internal.ContextWithActorID(r.Context(), actorID)
		ctx = logger.With(ctx, "actor_id", actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ExtractTokenFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
