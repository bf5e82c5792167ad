package workflow

import "time"

// Decision is the qualitative outcome attached to review transitions.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionReturned Decision = "returned"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionReturned:
		return true
	default:
		return false
	}
}

// Transition rows are append-only.
type Transition struct {
	ID         string    `gorm:"primaryKey;column:id"`
	DocumentID int64     `gorm:"column:document_id;not null;index"`
	FromStatus string    `gorm:"column:from_status;not null"`
	ToStatus   string    `gorm:"column:to_status;not null"`
	Decision   *Decision `gorm:"column:decision"`
	Comment    string    `gorm:"column:comment"`
	ActorID    int64     `gorm:"column:actor_id;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index"`
}

func (Transition) TableName() string {
	return "workflow_transitions"
}
