package workflow

import (
	"context"
	"net/http"

	"github.com/frahmantamala/docflow/internal/transport"
)

type ServiceAPI interface {
	GetAvailableTransitions(ctx context.Context, documentID, actorID int64) ([]AvailableTransition, error)
	TransitionStatus(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
	GetWorkflowHistory(ctx context.Context, documentID, actorID int64) ([]*Transition, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) AvailableTransitions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	transitions, err := h.Service.GetAvailableTransitions(r.Context(), documentID, actorID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"transitions": transitions})
}

func (h *Handler) Transition(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	req.DocumentID = documentID
	req.ActorID = actorID

	result, err := h.Service.TransitionStatus(r.Context(), req)
	if err != nil {
		h.Logger.Info("Transition: rejected", "error", err, "document_id", documentID, "to_status", req.NewStatus)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	history, err := h.Service.GetWorkflowHistory(r.Context(), documentID, actorID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}
