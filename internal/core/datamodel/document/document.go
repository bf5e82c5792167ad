package document

import (
	"time"

	"gorm.io/gorm"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDisposed  Status = "disposed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusReview, StatusPublished, StatusArchived, StatusDisposed:
		return true
	default:
		return false
	}
}

// Type is the closed set of controlled document types.
type Type string

const (
	TypeSOP    Type = "SOP"    // standard operating procedure
	TypeWI     Type = "WI"     // work instruction
	TypeTD     Type = "TD"     // technical document
	TypeForm   Type = "FORM"   // blank form / template
	TypeRecord Type = "RECORD" // filled-in quality record
	TypePolicy Type = "POLICY"
	TypeManual Type = "MANUAL"
)

var Types = []Type{TypeSOP, TypeWI, TypeTD, TypeForm, TypeRecord, TypePolicy, TypeManual}

func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// SecurityLevel is ordered; higher levels include lower ones.
type SecurityLevel string

const (
	SecurityPublic       SecurityLevel = "public"
	SecurityInternal     SecurityLevel = "internal"
	SecurityConfidential SecurityLevel = "confidential"
	SecurityRestricted   SecurityLevel = "restricted"
)

// Rank returns 0..3, or -1 for an unknown level.
func (l SecurityLevel) Rank() int {
	switch l {
	case SecurityPublic:
		return 0
	case SecurityInternal:
		return 1
	case SecurityConfidential:
		return 2
	case SecurityRestricted:
		return 3
	default:
		return -1
	}
}

func (l SecurityLevel) Valid() bool {
	return l.Rank() >= 0
}

type Document struct {
	ID              int64          `gorm:"primaryKey"`
	Title           string         `gorm:"column:title;not null"`
	Type            Type           `gorm:"column:type;not null"`
	Department      string         `gorm:"column:department;not null;index"`
	Status          Status         `gorm:"column:status;not null;index"`
	SecurityLevel   SecurityLevel  `gorm:"column:security_level;not null"`
	AuthorID        int64          `gorm:"column:author_id;not null;index"`
	ReviewerID      *int64         `gorm:"column:reviewer_id"`
	ApproverID      *int64         `gorm:"column:approver_id"`
	ReviewCycle     int            `gorm:"column:review_cycle;not null"`
	RetentionPeriod int            `gorm:"column:retention_period;not null"`
	Version         int            `gorm:"column:version;not null"`
	PublishedAt     *time.Time     `gorm:"column:published_at"`
	ArchivedAt      *time.Time     `gorm:"column:archived_at"`
	DisposedAt      *time.Time     `gorm:"column:disposed_at"`
	NextReviewDate  *time.Time     `gorm:"column:next_review_date"`
	DisposalDate    *time.Time     `gorm:"column:disposal_date"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Document) TableName() string {
	return "documents"
}
