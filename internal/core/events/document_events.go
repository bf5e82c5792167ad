package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDocumentStatusChanged = "document.status_changed"
	EventTypeTest                  = "system.test"
)

type DocumentStatusChangedEvent struct {
	BaseEvent
	DocumentID   int64  `json:"document_id"`
	TransitionID string `json:"transition_id"`
	FromStatus   string `json:"from_status"`
	ToStatus     string `json:"to_status"`
	ActorID      int64  `json:"actor_id"`
	Decision     string `json:"decision,omitempty"`
}

func NewDocumentStatusChangedEvent(documentID int64, transitionID, from, to string, actorID int64, decision string) *DocumentStatusChangedEvent {
	return &DocumentStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDocumentStatusChanged,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"document_id":   documentID,
				"transition_id": transitionID,
				"from_status":   from,
				"to_status":     to,
				"actor_id":      actorID,
				"decision":      decision,
			},
		},
		DocumentID:   documentID,
		TransitionID: transitionID,
		FromStatus:   from,
		ToStatus:     to,
		ActorID:      actorID,
		Decision:     decision,
	}
}

// NewTestEvent builds a free-form event for smoke-testing subscriptions.
func NewTestEvent(message string) *BaseEvent {
	return &BaseEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeTest,
		Timestamp: time.Now().UTC(),
		Data:      map[string]interface{}{"message": message},
	}
}
