package document

import "time"

// GrantType levels are ordered: higher levels include lower ones.
type GrantType string

const (
	GrantRead    GrantType = "read"
	GrantWrite   GrantType = "write"
	GrantApprove GrantType = "approve"
	GrantAdmin   GrantType = "admin"
)

func (g GrantType) Rank() int {
	switch g {
	case GrantRead:
		return 1
	case GrantWrite:
		return 2
	case GrantApprove:
		return 3
	case GrantAdmin:
		return 4
	default:
		return 0
	}
}

func (g GrantType) Valid() bool {
	return g.Rank() > 0
}

// PermissionGrant targets exactly one of UserID or Department.
type PermissionGrant struct {
	ID             int64      `gorm:"primaryKey"`
	DocumentID     int64      `gorm:"column:document_id;not null;index"`
	UserID         *int64     `gorm:"column:user_id;index"`
	Department     *string    `gorm:"column:department"`
	PermissionType GrantType  `gorm:"column:permission_type;not null"`
	GrantedBy      int64      `gorm:"column:granted_by;not null"`
	GrantedAt      time.Time  `gorm:"column:granted_at;not null"`
	ExpiresAt      *time.Time `gorm:"column:expires_at"`
	Active         bool       `gorm:"column:active"`
}

func (PermissionGrant) TableName() string {
	return "permission_grants"
}

// Effective reports whether the grant is active and not expired at now.
func (g *PermissionGrant) Effective(now time.Time) bool {
	if g == nil || !g.Active {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
