package audit

import "time"

// Entry rows are append-only. Details holds a JSON object.
type Entry struct {
	ID           string    `gorm:"primaryKey;column:id" db:"id"`
	ActorID      *int64    `gorm:"column:actor_id;index" db:"actor_id"`
	Action       string    `gorm:"column:action;not null;index" db:"action"`
	ResourceType string    `gorm:"column:resource_type;not null" db:"resource_type"`
	ResourceID   *int64    `gorm:"column:resource_id;index" db:"resource_id"`
	Outcome      string    `gorm:"column:outcome;not null" db:"outcome"`
	Reason       string    `gorm:"column:reason" db:"reason"`
	Details      string    `gorm:"column:details;type:text" db:"details"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;index" db:"created_at"`
}

func (Entry) TableName() string {
	return "audit_entries"
}
