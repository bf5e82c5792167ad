package audit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/transport"
)

type Filter struct {
	ActorID      *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	Outcome      Outcome
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

type TrailReader interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

type Handler struct {
	*transport.BaseHandler
	Reader TrailReader
}

func NewHandler(baseHandler *transport.BaseHandler, reader TrailReader) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Reader:      reader,
	}
}

// ListEntries serves GET /audit. Access is checked by the route middleware.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	entries, err := h.Reader.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("ListEntries: failed to read audit trail", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func ParseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	limit, offset := transport.Pagination(r, 100, 500)
	filter := Filter{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		Outcome:      Outcome(q.Get("outcome")),
		Limit:        limit,
		Offset:       offset,
	}

	if raw := q.Get("actor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError("actor_id", "actor_id must be an integer", internal.ErrCodeInvalidInput)
		}
		filter.ActorID = &id
	}
	if raw := q.Get("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError("resource_id", "resource_id must be an integer", internal.ErrCodeInvalidInput)
		}
		filter.ResourceID = &id
	}
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError("since", "since must be RFC3339", internal.ErrCodeInvalidInput)
		}
		filter.Since = &t
	}
	if raw := q.Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Filter{}, internal.NewValidationFieldError("until", "until must be RFC3339", internal.ErrCodeInvalidInput)
		}
		filter.Until = &t
	}
	return filter, nil
}
