package workflow

import (
	"fmt"
	"strings"

	"github.com/frahmantamala/docflow/internal"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	workflowDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/workflow"
)

type Status = documentDatamodel.Status

// Edge is one allowed lifecycle move and its requirements.
type Edge struct {
	From            Status
	To              Status
	Label           string
	RequiresComment bool
	Decisions       []workflowDatamodel.Decision

	// permits is the pair-specific rule checked before the generic
	// TRANSITION_* resolver check. Nil means generic only.
	permits pairRule
}

// pairRule returns a reason when the actor qualifies through the rule.
type pairRule func(actor *userDatamodel.User, doc *documentDatamodel.Document) (string, bool)

var edges = []Edge{
	{From: documentDatamodel.StatusDraft, To: documentDatamodel.StatusReview, Label: "Submit for review", permits: authorOrDepartment},
	{From: documentDatamodel.StatusDraft, To: documentDatamodel.StatusArchived, Label: "Archive"},
	{
		From: documentDatamodel.StatusReview, To: documentDatamodel.StatusPublished, Label: "Approve and publish",
		RequiresComment: true,
		Decisions:       []workflowDatamodel.Decision{workflowDatamodel.DecisionApproved},
		permits:         designatedReviewer,
	},
	{
		From: documentDatamodel.StatusReview, To: documentDatamodel.StatusDraft, Label: "Return to draft",
		RequiresComment: true,
		Decisions:       []workflowDatamodel.Decision{workflowDatamodel.DecisionRejected, workflowDatamodel.DecisionReturned},
		permits:         designatedReviewer,
	},
	{From: documentDatamodel.StatusReview, To: documentDatamodel.StatusArchived, Label: "Archive", RequiresComment: true},
	{From: documentDatamodel.StatusPublished, To: documentDatamodel.StatusArchived, Label: "Archive", permits: authorOrManager},
	{From: documentDatamodel.StatusPublished, To: documentDatamodel.StatusReview, Label: "Reopen for review", RequiresComment: true, permits: authorOrDepartment},
	{From: documentDatamodel.StatusArchived, To: documentDatamodel.StatusDisposed, Label: "Dispose", RequiresComment: true},
	{From: documentDatamodel.StatusArchived, To: documentDatamodel.StatusPublished, Label: "Restore", permits: authorOrDepartment},
}

// Lookup returns the edge from -> to, or false when the pair is not adjacent.
func Lookup(from, to Status) (Edge, bool) {
	for _, e := range edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Outgoing lists the edges leaving from. Disposed has none.
func Outgoing(from Status) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

func (e Edge) String() string {
	return fmt.Sprintf("%s to %s", e.From, e.To)
}

func (e Edge) decisionNames() []string {
	names := make([]string, 0, len(e.Decisions))
	for _, d := range e.Decisions {
		names = append(names, string(d))
	}
	return names
}

// validate checks comment and decision requirements, in that order.
func (e Edge) validate(comment, decision string) (*workflowDatamodel.Decision, error) {
	if e.RequiresComment && strings.TrimSpace(comment) == "" {
		return nil, internal.NewValidationError(
			fmt.Sprintf("A comment is required to move a document from %s", e),
			internal.ErrCodeCommentRequired)
	}

	decision = strings.ToLower(strings.TrimSpace(decision))
	if len(e.Decisions) == 0 {
		if decision != "" {
			return nil, internal.NewValidationError(
				fmt.Sprintf("Transition from %s does not take a decision", e),
				internal.ErrCodeInvalidDecision)
		}
		return nil, nil
	}
	if decision == "" {
		return nil, internal.NewValidationError(
			fmt.Sprintf("A decision is required to move a document from %s; expected %s", e, strings.Join(e.decisionNames(), " or ")),
			internal.ErrCodeDecisionRequired)
	}
	for _, d := range e.Decisions {
		if string(d) == decision {
			chosen := d
			return &chosen, nil
		}
	}
	return nil, internal.NewValidationError(
		fmt.Sprintf("Decision %q is not valid for %s; expected %s", decision, e, strings.Join(e.decisionNames(), " or ")),
		internal.ErrCodeInvalidDecision)
}

func authorOrDepartment(actor *userDatamodel.User, doc *documentDatamodel.Document) (string, bool) {
	if actor.ID == doc.AuthorID {
		return "Document author", true
	}
	if sameDepartment(actor, doc) {
		return "Same department as the document", true
	}
	return "", false
}

func designatedReviewer(actor *userDatamodel.User, doc *documentDatamodel.Document) (string, bool) {
	if doc.ReviewerID != nil && *doc.ReviewerID == actor.ID {
		return "Designated reviewer", true
	}
	if doc.ApproverID != nil && *doc.ApproverID == actor.ID {
		return "Designated approver", true
	}
	return "", false
}

func authorOrManager(actor *userDatamodel.User, doc *documentDatamodel.Document) (string, bool) {
	if actor.ID == doc.AuthorID {
		return "Document author", true
	}
	if actor.IsManager && sameDepartment(actor, doc) {
		return "Department manager", true
	}
	return "", false
}

func sameDepartment(actor *userDatamodel.User, doc *documentDatamodel.Document) bool {
	return actor.Department != "" && strings.EqualFold(actor.Department, doc.Department)
}
