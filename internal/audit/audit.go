package audit

import (
	"context"
	"encoding/json"
	"time"

	auditDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/audit"
	"github.com/google/uuid"
)

type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeError   Outcome = "error"
)

// Audit-only event names. Authorization requests use the present-tense action
// vocabulary; these past-tense names only ever appear in the trail.
const (
	ActionSystemError          = "SYSTEM_ERROR"
	ActionEffectivePermissions = "EFFECTIVE_PERMISSIONS_EVALUATED"
	ActionStatusChanged        = "DOCUMENT_STATUS_CHANGED"
	ActionPermissionGranted    = "PERMISSION_GRANTED"
	ActionPermissionRevoked    = "PERMISSION_REVOKED"
	ActionDocumentCreated      = "DOCUMENT_CREATED"
	ActionDocumentUpdated      = "DOCUMENT_UPDATED"
	ActionDocumentDeleted      = "DOCUMENT_DELETED"
	ActionUserCreated          = "USER_CREATED"
	ActionUserDeactivated      = "USER_DEACTIVATED"
)

var logAliases = map[string]string{
	"VIEW_DOCUMENT":     "DOCUMENT_VIEWED",
	"EDIT_DOCUMENT":     "DOCUMENT_UPDATED",
	"CREATE_DOCUMENT":   "DOCUMENT_CREATED",
	"DELETE_DOCUMENT":   "DOCUMENT_DELETED",
	"CREATE_VERSION":    "VERSION_CREATED",
	"RESTORE_VERSION":   "VERSION_RESTORED",
	"VIEW_HISTORY":      "HISTORY_VIEWED",
	"SUBMIT_FOR_REVIEW": "DOCUMENT_SUBMITTED_FOR_REVIEW",
	"APPROVE_DOCUMENT":  "DOCUMENT_APPROVED",
	"REJECT_DOCUMENT":   "DOCUMENT_REJECTED",
	"PUBLISH_DOCUMENT":  "DOCUMENT_PUBLISHED",
	"ARCHIVE_DOCUMENT":  "DOCUMENT_ARCHIVED",
	"DISPOSE_DOCUMENT":  "DOCUMENT_DISPOSED",

	"TRANSITION_DRAFT_TO_REVIEW":       "DOCUMENT_SUBMITTED_FOR_REVIEW",
	"TRANSITION_DRAFT_TO_ARCHIVED":     "DOCUMENT_ARCHIVED",
	"TRANSITION_REVIEW_TO_PUBLISHED":   "DOCUMENT_PUBLISHED",
	"TRANSITION_REVIEW_TO_DRAFT":       "DOCUMENT_RETURNED_TO_DRAFT",
	"TRANSITION_REVIEW_TO_ARCHIVED":    "DOCUMENT_ARCHIVED",
	"TRANSITION_PUBLISHED_TO_ARCHIVED": "DOCUMENT_ARCHIVED",
	"TRANSITION_PUBLISHED_TO_REVIEW":   "DOCUMENT_REOPENED_FOR_REVIEW",
	"TRANSITION_ARCHIVED_TO_DISPOSED":  "DOCUMENT_DISPOSED",
	"TRANSITION_ARCHIVED_TO_PUBLISHED": "DOCUMENT_RESTORED",
}

// LogAlias returns the past-tense trail name for a request action, or the action itself.
func LogAlias(action string) string {
	if alias, ok := logAliases[action]; ok {
		return alias
	}
	return action
}

// Recorder is the append-only audit sink.
type Recorder interface {
	Append(ctx context.Context, entry Entry) error
}

type discard struct{}

func (discard) Append(context.Context, Entry) error { return nil }

// Discard drops every entry.
var Discard Recorder = discard{}

type Entry struct {
	ID           string         `json:"id"`
	ActorID      *int64         `json:"actor_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *int64         `json:"resource_id,omitempty"`
	Outcome      Outcome        `json:"outcome"`
	Reason       string         `json:"reason,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewEntry fills in id and timestamp.
func NewEntry(actorID int64, action, resourceType string, resourceID *int64, outcome Outcome, reason string) Entry {
	var actor *int64
	if actorID > 0 {
		id := actorID
		actor = &id
	}
	return Entry{
		ID:           uuid.NewString(),
		ActorID:      actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      outcome,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	}
}

// WithDetail returns a copy of e carrying one more detail key.
func (e Entry) WithDetail(key string, value any) Entry {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

func ToDataModel(e Entry) (*auditDatamodel.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var details string
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, err
		}
		details = string(raw)
	}
	return &auditDatamodel.Entry{
		ID:           e.ID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Outcome:      string(e.Outcome),
		Reason:       e.Reason,
		Details:      details,
		CreatedAt:    e.CreatedAt,
	}, nil
}

func FromDataModel(row *auditDatamodel.Entry) Entry {
	entry := Entry{
		ID:           row.ID,
		ActorID:      row.ActorID,
		Action:       row.Action,
		ResourceType: row.ResourceType,
		ResourceID:   row.ResourceID,
		Outcome:      Outcome(row.Outcome),
		Reason:       row.Reason,
		CreatedAt:    row.CreatedAt,
	}
	if row.Details != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(row.Details), &details); err == nil {
			entry.Details = details
		}
	}
	return entry
}
