package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	auditPostgres "github.com/frahmantamala/docflow/internal/audit/postgres"
	authzPostgres "github.com/frahmantamala/docflow/internal/authz/postgres"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	workflowDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/workflow"
	"github.com/frahmantamala/docflow/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkflowRepository implements workflow.Repository using GORM.
type WorkflowRepository struct {
	*authzPostgres.Store
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{
		Store: authzPostgres.NewStore(db),
		db:    db,
	}
}

func (r *WorkflowRepository) ListTransitions(ctx context.Context, documentID int64) ([]*workflowDatamodel.Transition, error) {
	var rows []*workflowDatamodel.Transition
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, internal.ClassifyStoreError("failed to list transitions", err)
	}
	return rows, nil
}

func (r *WorkflowRepository) InTx(ctx context.Context, fn func(tx workflow.TxRepository) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTxRepository(tx))
	})
	if err != nil {
		return internal.ClassifyStoreError("workflow transaction failed", err)
	}
	return nil
}

type txRepository struct {
	*authzPostgres.Store
	tx    *gorm.DB
	audit *auditPostgres.AuditRepository
}

func newTxRepository(tx *gorm.DB) *txRepository {
	return &txRepository{
		Store: authzPostgres.NewStore(tx),
		tx:    tx,
		audit: auditPostgres.NewAuditRepository(tx),
	}
}

func (r *txRepository) LockDocument(ctx context.Context, id int64) (*documentDatamodel.Document, error) {
	var doc documentDatamodel.Document
	err := r.tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDocumentNotFound
		}
		return nil, internal.ClassifyStoreError("failed to lock document", err)
	}
	return &doc, nil
}

func (r *txRepository) SaveStatus(ctx context.Context, doc *documentDatamodel.Document, from workflow.Status) error {
	result := r.tx.WithContext(ctx).
		Model(&documentDatamodel.Document{}).
		Where("id = ? AND status = ?", doc.ID, from).
		Updates(map[string]interface{}{
			"status":           doc.Status,
			"version":          doc.Version,
			"published_at":     doc.PublishedAt,
			"archived_at":      doc.ArchivedAt,
			"disposed_at":      doc.DisposedAt,
			"next_review_date": doc.NextReviewDate,
			"disposal_date":    doc.DisposalDate,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return internal.ClassifyStoreError("failed to update document status", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrStatusConflict
	}
	return nil
}

func (r *txRepository) AppendTransition(ctx context.Context, t *workflowDatamodel.Transition) error {
	if err := r.tx.WithContext(ctx).Create(t).Error; err != nil {
		return internal.ClassifyStoreError("failed to record transition", err)
	}
	return nil
}

func (r *txRepository) AppendAudit(ctx context.Context, entry audit.Entry) error {
	return r.audit.Append(ctx, entry)
}
