package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/docflow/internal/transport"
)

type ServiceAPI interface {
	CreateUser(ctx context.Context, actorID int64, dto CreateUserDTO) (*User, error)
	GetUser(ctx context.Context, actorID, userID int64) (*User, error)
	DeactivateUser(ctx context.Context, actorID, userID int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}

	u, err := h.Service.GetUser(r.Context(), actorID, actorID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetUser failed", "user_id", actorID, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	userID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.Service.GetUser(r.Context(), actorID, userID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	var dto CreateUserDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	u, err := h.Service.CreateUser(r.Context(), actorID, dto)
	if err != nil {
		h.Logger.Error("CreateUser: service error", "error", err, "actor_id", actorID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	userID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeactivateUser(r.Context(), actorID, userID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
