package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/docflow/internal"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// Store implements authz.Store over gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store whose reads happen inside tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

func (s *Store) GetUser(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var user userDatamodel.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, internal.ClassifyStoreError("failed to load user", err)
	}
	return &user, nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*documentDatamodel.Document, error) {
	var doc documentDatamodel.Document
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDocumentNotFound
		}
		return nil, internal.ClassifyStoreError("failed to load document", err)
	}
	return &doc, nil
}

func (s *Store) ListGrants(ctx context.Context, documentID, userID int64, department string) ([]*documentDatamodel.PermissionGrant, error) {
	var grants []*documentDatamodel.PermissionGrant
	err := s.db.WithContext(ctx).
		Where("document_id = ? AND active = ?", documentID, true).
		Where("(user_id = ? OR department = ?)", userID, department).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC()).
		Find(&grants).Error
	if err != nil {
		return nil, internal.ClassifyStoreError("failed to list grants", err)
	}
	return grants, nil
}
