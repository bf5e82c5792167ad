package document

import (
	"time"

	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
)

const (
	DefaultReviewCycleDays     = 365
	DefaultRetentionPeriodDays = 2555
)

type Document struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Type            string     `json:"type"`
	Department      string     `json:"department"`
	Status          string     `json:"status"`
	SecurityLevel   string     `json:"security_level"`
	AuthorID        int64      `json:"author_id"`
	ReviewerID      *int64     `json:"reviewer_id,omitempty"`
	ApproverID      *int64     `json:"approver_id,omitempty"`
	ReviewCycle     int        `json:"review_cycle"`
	RetentionPeriod int        `json:"retention_period"`
	Version         int        `json:"version"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	DisposedAt      *time.Time `json:"disposed_at,omitempty"`
	NextReviewDate  *time.Time `json:"next_review_date,omitempty"`
	DisposalDate    *time.Time `json:"disposal_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func FromDataModel(d *documentDatamodel.Document) *Document {
	return &Document{
		ID:              d.ID,
		Title:           d.Title,
		Type:            string(d.Type),
		Department:      d.Department,
		Status:          string(d.Status),
		SecurityLevel:   string(d.SecurityLevel),
		AuthorID:        d.AuthorID,
		ReviewerID:      d.ReviewerID,
		ApproverID:      d.ApproverID,
		ReviewCycle:     d.ReviewCycle,
		RetentionPeriod: d.RetentionPeriod,
		Version:         d.Version,
		PublishedAt:     d.PublishedAt,
		ArchivedAt:      d.ArchivedAt,
		DisposedAt:      d.DisposedAt,
		NextReviewDate:  d.NextReviewDate,
		DisposalDate:    d.DisposalDate,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type Grant struct {
	ID             int64      `json:"id"`
	DocumentID     int64      `json:"document_id"`
	UserID         *int64     `json:"user_id,omitempty"`
	Department     *string    `json:"department,omitempty"`
	PermissionType string     `json:"permission_type"`
	GrantedBy      int64      `json:"granted_by"`
	GrantedAt      time.Time  `json:"granted_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Active         bool       `json:"active"`
}

func GrantFromDataModel(g *documentDatamodel.PermissionGrant) *Grant {
	return &Grant{
		ID:             g.ID,
		DocumentID:     g.DocumentID,
		UserID:         g.UserID,
		Department:     g.Department,
		PermissionType: string(g.PermissionType),
		GrantedBy:      g.GrantedBy,
		GrantedAt:      g.GrantedAt,
		ExpiresAt:      g.ExpiresAt,
		Active:         g.Active,
	}
}
