package document

import (
	"strings"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/core/common/validation"
)

var (
	typeNames     = []string{"SOP", "WI", "TD", "FORM", "RECORD", "POLICY", "MANUAL"}
	securityNames = []string{"public", "internal", "confidential", "restricted"}
	grantNames    = []string{"read", "write", "approve", "admin"}
)

type CreateDocumentDTO struct {
	Title           string `json:"title"`
	Type            string `json:"type"`
	Department      string `json:"department"`
	SecurityLevel   string `json:"security_level"`
	ReviewerID      *int64 `json:"reviewer_id,omitempty"`
	ApproverID      *int64 `json:"approver_id,omitempty"`
	ReviewCycle     int    `json:"review_cycle,omitempty"`
	RetentionPeriod int    `json:"retention_period,omitempty"`
}

func (dto CreateDocumentDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", dto.Title).Required().MaxLength(255)
	v.Field("type", dto.Type).Required().OneOf(typeNames...)
	v.Field("department", dto.Department).Required().MaxLength(64)
	v.Field("security_level", dto.SecurityLevel).OneOf(securityNames...)
	v.Field("review_cycle", int64(dto.ReviewCycle)).MinInt(0)
	v.Field("retention_period", int64(dto.RetentionPeriod)).MinInt(0)
	return v.Err()
}

// UpdateDocumentDTO carries optional changes; nil fields are left alone.
type UpdateDocumentDTO struct {
	Title           *string `json:"title,omitempty"`
	SecurityLevel   *string `json:"security_level,omitempty"`
	ReviewerID      *int64  `json:"reviewer_id,omitempty"`
	ApproverID      *int64  `json:"approver_id,omitempty"`
	ReviewCycle     *int    `json:"review_cycle,omitempty"`
	RetentionPeriod *int    `json:"retention_period,omitempty"`
}

func (dto UpdateDocumentDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Title != nil {
		v.Field("title", dto.Title).Required()
		v.Field("title", *dto.Title).MaxLength(255)
	}
	if dto.SecurityLevel != nil {
		v.Field("security_level", *dto.SecurityLevel).Required().OneOf(securityNames...)
	}
	if dto.ReviewCycle != nil {
		v.Field("review_cycle", int64(*dto.ReviewCycle)).MinInt(1)
	}
	if dto.RetentionPeriod != nil {
		v.Field("retention_period", int64(*dto.RetentionPeriod)).MinInt(1)
	}
	return v.Err()
}

func (dto UpdateDocumentDTO) Empty() bool {
	return dto.Title == nil && dto.SecurityLevel == nil && dto.ReviewerID == nil &&
		dto.ApproverID == nil && dto.ReviewCycle == nil && dto.RetentionPeriod == nil
}

type GrantPermissionDTO struct {
	UserID         *int64     `json:"user_id,omitempty"`
	Department     *string    `json:"department,omitempty"`
	PermissionType string     `json:"permission_type"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// Validate enforces exactly one grant target.
func (dto GrantPermissionDTO) Validate(now time.Time) error {
	v := validation.NewValidator()
	v.Field("permission_type", dto.PermissionType).Required().OneOf(grantNames...)
	v.Field("expires_at", dto.ExpiresAt).Future(now)
	v.Field("target", dto).Custom(func(interface{}) *internal.AppError {
		hasUser := dto.UserID != nil && *dto.UserID > 0
		hasDept := dto.Department != nil && strings.TrimSpace(*dto.Department) != ""
		if hasUser == hasDept {
			return internal.NewValidationFieldError("target", "exactly one of user_id or department is required", internal.ErrCodeInvalidInput)
		}
		return nil
	})
	return v.Err()
}
