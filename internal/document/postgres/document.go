package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/docflow/internal"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	"github.com/frahmantamala/docflow/internal/document"
	"gorm.io/gorm"
)

// DocumentRepository implements document.Repository and
// document.GrantRepository using GORM.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *documentDatamodel.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return internal.ClassifyStoreError("failed to create document", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*documentDatamodel.Document, error) {
	var doc documentDatamodel.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDocumentNotFound
		}
		return nil, internal.ClassifyStoreError("failed to load document", err)
	}
	return &doc, nil
}

// Update saves editable metadata while the stored status still equals from.
// Status and lifecycle timestamps only change through the workflow repository.
func (r *DocumentRepository) Update(ctx context.Context, doc *documentDatamodel.Document, from documentDatamodel.Status) error {
	result := r.db.WithContext(ctx).
		Model(&documentDatamodel.Document{}).
		Where("id = ? AND status = ?", doc.ID, from).
		Updates(map[string]interface{}{
			"title":            doc.Title,
			"security_level":   doc.SecurityLevel,
			"reviewer_id":      doc.ReviewerID,
			"approver_id":      doc.ApproverID,
			"review_cycle":     doc.ReviewCycle,
			"retention_period": doc.RetentionPeriod,
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return internal.ClassifyStoreError("failed to update document", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, doc.ID)
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64, from documentDatamodel.Status) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, from).
		Delete(&documentDatamodel.Document{})
	if result.Error != nil {
		return internal.ClassifyStoreError("failed to delete document", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict explains a guarded write that matched no row.
func (r *DocumentRepository) missOrConflict(ctx context.Context, id int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&documentDatamodel.Document{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return internal.ClassifyStoreError("failed to load document", err)
	}
	if count == 0 {
		return internal.ErrDocumentNotFound
	}
	return internal.ErrStatusConflict
}

func (r *DocumentRepository) List(ctx context.Context, filter document.ListFilter) ([]*documentDatamodel.Document, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&documentDatamodel.Document{})
	if filter.Department != "" {
		query = query.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var docs []*documentDatamodel.Document
	err := query.Order("updated_at DESC").Limit(limit).Offset(filter.Offset).Find(&docs).Error
	if err != nil {
		return nil, internal.ClassifyStoreError("failed to list documents", err)
	}
	return docs, nil
}

func (r *DocumentRepository) CreateGrant(ctx context.Context, grant *documentDatamodel.PermissionGrant) error {
	if err := r.db.WithContext(ctx).Create(grant).Error; err != nil {
		return internal.ClassifyStoreError("failed to create grant", err)
	}
	return nil
}

func (r *DocumentRepository) GetGrant(ctx context.Context, id int64) (*documentDatamodel.PermissionGrant, error) {
	var grant documentDatamodel.PermissionGrant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrGrantNotFound
		}
		return nil, internal.ClassifyStoreError("failed to load grant", err)
	}
	return &grant, nil
}

func (r *DocumentRepository) RevokeGrant(ctx context.Context, id int64, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&documentDatamodel.PermissionGrant{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{
			"active":     false,
			"expires_at": at,
		})
	if result.Error != nil {
		return internal.ClassifyStoreError("failed to revoke grant", result.Error)
	}
	return nil
}

func (r *DocumentRepository) ListByDocument(ctx context.Context, documentID int64, includeInactive bool) ([]*documentDatamodel.PermissionGrant, error) {
	query := r.db.WithContext(ctx).Where("document_id = ?", documentID)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var grants []*documentDatamodel.PermissionGrant
	if err := query.Order("granted_at ASC").Find(&grants).Error; err != nil {
		return nil, internal.ClassifyStoreError("failed to list grants", err)
	}
	return grants, nil
}
