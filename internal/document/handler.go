package document

import (
	"context"
	"net/http"

	"github.com/frahmantamala/docflow/internal/transport"
)

type ServiceAPI interface {
	CreateDocument(ctx context.Context, actorID int64, dto CreateDocumentDTO) (*Document, error)
	GetDocument(ctx context.Context, actorID, documentID int64) (*Document, error)
	ListDocuments(ctx context.Context, actorID int64, filter ListFilter) ([]*Document, error)
	UpdateDocument(ctx context.Context, actorID, documentID int64, dto UpdateDocumentDTO) (*Document, error)
	DeleteDocument(ctx context.Context, actorID, documentID int64) error
}

type GrantServiceAPI interface {
	GrantPermission(ctx context.Context, actorID, documentID int64, dto GrantPermissionDTO) (*Grant, error)
	RevokePermission(ctx context.Context, actorID, documentID, grantID int64) error
	ListGrants(ctx context.Context, actorID, documentID int64, includeInactive bool) ([]*Grant, error)
}

type Handler struct {
	*transport.BaseHandler
	Service      ServiceAPI
	GrantService GrantServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, grantService GrantServiceAPI) *Handler {
	return &Handler{
		BaseHandler:  baseHandler,
		Service:      service,
		GrantService: grantService,
	}
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	var dto CreateDocumentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	doc, err := h.Service.CreateDocument(r.Context(), actorID, dto)
	if err != nil {
		h.Logger.Error("CreateDocument: service error", "error", err, "actor_id", actorID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	limit, offset := transport.Pagination(r, 20, 100)
	filter := ListFilter{
		Department: r.URL.Query().Get("department"),
		Status:     r.URL.Query().Get("status"),
		Limit:      limit,
		Offset:     offset,
	}

	docs, err := h.Service.ListDocuments(r.Context(), actorID, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.Service.GetDocument(r.Context(), actorID, documentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateDocumentDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	doc, err := h.Service.UpdateDocument(r.Context(), actorID, documentID, dto)
	if err != nil {
		h.Logger.Error("UpdateDocument: service error", "error", err, "document_id", documentID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteDocument(r.Context(), actorID, documentID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}

	grants, err := h.GrantService.ListGrants(r.Context(), actorID, documentID, r.URL.Query().Get("include_inactive") == "true")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"grants": grants})
}

func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	var dto GrantPermissionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	grant, err := h.GrantService.GrantPermission(r.Context(), actorID, documentID, dto)
	if err != nil {
		h.Logger.Error("GrantPermission: service error", "error", err, "document_id", documentID)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, grant)
}

func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.ActorID(w, r)
	if !ok {
		return
	}
	documentID, ok := h.PathID(w, r, "id")
	if !ok {
		return
	}
	grantID, ok := h.PathID(w, r, "grantID")
	if !ok {
		return
	}

	if err := h.GrantService.RevokePermission(r.Context(), actorID, documentID, grantID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
