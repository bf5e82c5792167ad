package postgres

import (
	"context"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	auditDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

// AuditRepository appends entries to audit_entries. It never updates or deletes.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// WithTx binds the repository to an open transaction so the entry commits
// or rolls back with the surrounding change.
func (r *AuditRepository) WithTx(tx *gorm.DB) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	row, err := audit.ToDataModel(entry)
	if err != nil {
		return internal.NewInternalError("failed to encode audit details", err)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return internal.ClassifyStoreError("failed to append audit entry", err)
	}
	return nil
}

// ListByResource returns the newest entries for one resource first.
func (r *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID int64, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []*auditDatamodel.Entry
	err := r.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, internal.ClassifyStoreError("failed to list audit entries", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, audit.FromDataModel(row))
	}
	return entries, nil
}
