package postgres

import (
	"context"
	"strings"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	auditDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/audit"
	"github.com/jmoiron/sqlx"
)

const maxTrailPage = 500

// TrailReader serves filtered reads of the audit trail over sqlx.
type TrailReader struct {
	db *sqlx.DB
}

func NewTrailReader(db *sqlx.DB) *TrailReader {
	return &TrailReader{db: db}
}

func (t *TrailReader) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query, args := buildTrailQuery(filter)

	var rows []auditDatamodel.Entry
	if err := t.db.SelectContext(ctx, &rows, t.db.Rebind(query), args...); err != nil {
		return nil, internal.ClassifyStoreError("failed to read audit trail", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, audit.FromDataModel(&rows[i]))
	}
	return entries, nil
}

func buildTrailQuery(filter audit.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if filter.ActorID != nil {
		conds = append(conds, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.ResourceType != "" {
		conds = append(conds, "resource_type = ?")
		args = append(args, filter.ResourceType)
	}
	if filter.ResourceID != nil {
		conds = append(conds, "resource_id = ?")
		args = append(args, *filter.ResourceID)
	}
	if filter.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, *filter.Until)
	}

	var b strings.Builder
	b.WriteString(`SELECT id, actor_id, action, resource_type, resource_id, outcome, reason, details, created_at FROM audit_entries`)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")

	limit := filter.Limit
	if limit <= 0 || limit > maxTrailPage {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	return b.String(), args
}
