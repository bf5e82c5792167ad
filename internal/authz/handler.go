package authz

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/transport"
)

type CheckRequestDTO struct {
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *int64         `json:"resource_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

type Handler struct {
	*transport.BaseHandler
	Resolver *Resolver
}

func NewHandler(baseHandler *transport.BaseHandler, resolver *Resolver) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Resolver:    resolver,
	}
}

// Check evaluates one request for the authenticated actor. Denials are 200
// responses with allowed=false.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}

	var dto CheckRequestDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	decision := h.Resolver.CheckPermission(r.Context(), Request{
		ActorID:      actorID,
		Action:       dto.Action,
		ResourceType: dto.ResourceType,
		ResourceID:   dto.ResourceID,
		Context:      dto.Context,
	})
	h.WriteJSON(w, http.StatusOK, decision)
}

func (h *Handler) Effective(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var resourceID *int64
	if raw := q.Get("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleServiceError(w, internal.NewValidationFieldError("resource_id", "resource_id must be an integer", internal.ErrCodeInvalidInput))
			return
		}
		resourceID = &id
	}

	result, err := h.Resolver.GetEffectivePermissions(r.Context(), actorID, q.Get("resource_type"), resourceID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}
