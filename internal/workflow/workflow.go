package workflow

import (
	"time"

	workflowDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/workflow"
	"github.com/frahmantamala/docflow/internal/document"
)

type TransitionRequest struct {
	DocumentID int64  `json:"document_id"`
	NewStatus  string `json:"new_status"`
	ActorID    int64  `json:"-"`
	Comment    string `json:"comment,omitempty"`
	Decision   string `json:"decision,omitempty"`
}

type TransitionResult struct {
	TransitionID string             `json:"transition_id"`
	FromStatus   string             `json:"from_status"`
	ToStatus     string             `json:"to_status"`
	Reason       string             `json:"reason"`
	Document     *document.Document `json:"document"`
}

// AvailableTransition describes one outgoing edge as seen by one actor.
type AvailableTransition struct {
	ToStatus         string   `json:"to_status"`
	Label            string   `json:"label"`
	RequiresComment  bool     `json:"requires_comment"`
	RequiresDecision bool     `json:"requires_decision"`
	Decisions        []string `json:"decisions,omitempty"`
	Allowed          bool     `json:"allowed"`
	Reason           string   `json:"reason"`
}

type Transition struct {
	ID         string    `json:"id"`
	DocumentID int64     `json:"document_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Decision   string    `json:"decision,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	ActorID    int64     `json:"actor_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func TransitionFromDataModel(t *workflowDatamodel.Transition) *Transition {
	out := &Transition{
		ID:         t.ID,
		DocumentID: t.DocumentID,
		FromStatus: t.FromStatus,
		ToStatus:   t.ToStatus,
		Comment:    t.Comment,
		ActorID:    t.ActorID,
		CreatedAt:  t.CreatedAt,
	}
	if t.Decision != nil {
		out.Decision = string(*t.Decision)
	}
	return out
}
