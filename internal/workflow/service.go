package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	"github.com/frahmantamala/docflow/internal/authz"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	workflowDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/workflow"
	"github.com/frahmantamala/docflow/internal/core/events"
	"github.com/frahmantamala/docflow/internal/document"
	"github.com/frahmantamala/docflow/pkg/logger"
	"github.com/google/uuid"
)

// SourceWorkflow marks decisions made by a pair-specific transition rule.
const SourceWorkflow = "workflow"

// Repository is the workflow's view of the store. Its authz.Store methods
// read outside any transaction.
type Repository interface {
	authz.Store
	ListTransitions(ctx context.Context, documentID int64) ([]*workflowDatamodel.Transition, error)
	// InTx runs fn in one transaction. Any error from fn rolls back every write.
	InTx(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is bound to an open transaction. Its authz.Store methods read
// inside that transaction.
type TxRepository interface {
	authz.Store
	// LockDocument reads the document and holds its row lock until commit.
	LockDocument(ctx context.Context, id int64) (*documentDatamodel.Document, error)
	// SaveStatus writes doc's status and lifecycle fields only if the stored
	// status still equals from; otherwise it returns internal.ErrStatusConflict.
	SaveStatus(ctx context.Context, doc *documentDatamodel.Document, from Status) error
	AppendTransition(ctx context.Context, t *workflowDatamodel.Transition) error
	AppendAudit(ctx context.Context, entry audit.Entry) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	StoreTimeout time.Duration
}

type Service struct {
	repo      Repository
	resolver  *authz.Resolver
	recorder  audit.Recorder
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, resolver *authz.Resolver, recorder audit.Recorder, publisher Publisher, cfg Config, log *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Service{
		repo:      repo,
		resolver:  resolver,
		recorder:  recorder,
		publisher: publisher,
		timeout:   cfg.StoreTimeout,
		logger:    logger.OrNop(log),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used for lifecycle timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// GetAvailableTransitions lists every outgoing edge of the document's current
// status with whether actorID may take it. Probes are not audited.
func (s *Service) GetAvailableTransitions(ctx context.Context, documentID, actorID int64) ([]AvailableTransition, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	outgoing := Outgoing(doc.Status)
	available := make([]AvailableTransition, 0, len(outgoing))
	for _, edge := range outgoing {
		d, err := s.authorize(ctx, s.resolver, s.repo, actorID, doc, edge, true)
		if err != nil {
			return nil, err
		}
		available = append(available, AvailableTransition{
			ToStatus:         string(edge.To),
			Label:            edge.Label,
			RequiresComment:  edge.RequiresComment,
			RequiresDecision: len(edge.Decisions) > 0,
			Decisions:        edge.decisionNames(),
			Allowed:          d.Allowed,
			Reason:           d.Reason,
		})
	}
	return available, nil
}

// TransitionStatus moves a document along one edge. Checks run in order:
// adjacency, authorization, comment, decision. The status change, transition
// record and audit entry commit together or not at all.
func (s *Service) TransitionStatus(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	target := Status(strings.ToLower(strings.TrimSpace(req.NewStatus)))
	if !target.Valid() {
		err := internal.NewValidationError(fmt.Sprintf("Unknown status: %s", req.NewStatus), internal.ErrCodeInvalidTransition)
		s.recordFailure(ctx, req, "", err)
		return nil, err
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		result *TransitionResult
		from   Status
	)
	err := s.repo.InTx(ctx, func(tx TxRepository) error {
		doc, err := tx.LockDocument(ctx, req.DocumentID)
		if err != nil {
			return err
		}
		from = doc.Status

		edge, ok := Lookup(from, target)
		if !ok {
			return internal.NewValidationError(
				fmt.Sprintf("Transition from %s to %s is not allowed", from, target),
				internal.ErrCodeInvalidTransition)
		}

		decision, err := s.authorize(ctx, s.resolver.WithStore(tx), tx, req.ActorID, doc, edge, false)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return internal.NewForbiddenError(decision.Reason, internal.ErrCodeAccessDenied)
		}

		chosen, err := edge.validate(req.Comment, req.Decision)
		if err != nil {
			return err
		}

		now := s.now()
		applyLifecycle(doc, edge, now)
		if err := tx.SaveStatus(ctx, doc, from); err != nil {
			return err
		}

		record := &workflowDatamodel.Transition{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			FromStatus: string(from),
			ToStatus:   string(target),
			Decision:   chosen,
			Comment:    strings.TrimSpace(req.Comment),
			ActorID:    req.ActorID,
			CreatedAt:  now,
		}
		if err := tx.AppendTransition(ctx, record); err != nil {
			return err
		}

		if err := tx.AppendAudit(ctx, s.successEntry(req, edge, record, decision)); err != nil {
			return err
		}

		result = &TransitionResult{
			TransitionID: record.ID,
			FromStatus:   record.FromStatus,
			ToStatus:     record.ToStatus,
			Reason:       decision.Reason,
			Document:     document.FromDataModel(doc),
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, req, from, err)
		return nil, err
	}

	s.logger.Info("document status changed",
		"document_id", req.DocumentID,
		"actor_id", req.ActorID,
		"from_status", result.FromStatus,
		"to_status", result.ToStatus,
		"transition_id", result.TransitionID,
		"action", audit.LogAlias(transitionActionName(from, target)))
	s.publish(ctx, req, result)
	return result, nil
}

// GetWorkflowHistory returns the document's transitions oldest first.
func (s *Service) GetWorkflowHistory(ctx context.Context, documentID, actorID int64) ([]*Transition, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.repo.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	decision := s.resolver.CheckPermission(ctx, authz.Request{
		ActorID:      actorID,
		Action:       authz.ActionViewHistory.String(),
		ResourceType: string(authz.ResourceDocument),
		ResourceID:   &documentID,
	})
	if !decision.Allowed {
		return nil, authz.DenialError(decision)
	}

	rows, err := s.repo.ListTransitions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	history := make([]*Transition, 0, len(rows))
	for _, row := range rows {
		history = append(history, TransitionFromDataModel(row))
	}
	return history, nil
}

// authorize decides whether actorID may take edge on doc. Admins bypass; a
// matching pair rule allows; anything else goes to the resolver as the
// generic TRANSITION_* action. A returned error is a store failure.
func (s *Service) authorize(ctx context.Context, resolver *authz.Resolver, store authz.Store, actorID int64, doc *documentDatamodel.Document, edge Edge, probe bool) (authz.Decision, error) {
	action, _ := authz.TransitionAction(edge.From, edge.To)
	now := s.now()

	if actorID <= 0 {
		return authz.Decision{Reason: "User not found", Source: authz.SourceDefault, CheckedAt: now}, nil
	}
	actor, err := store.GetUser(ctx, actorID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return authz.Decision{Reason: "User not found", Source: authz.SourceDefault, CheckedAt: now}, nil
		}
		return authz.Decision{}, err
	}
	if !actor.Active {
		return authz.Decision{Reason: "User account is inactive", Source: authz.SourceDefault, CheckedAt: now}, nil
	}

	if actor.Role == userDatamodel.RoleAdmin {
		return authz.Decision{Allowed: true, Reason: "Admin access", Source: authz.SourceAdmin, CheckedAt: now}, nil
	}
	if !authz.RoleAllows(actor.Role, action) {
		return authz.Decision{Reason: "Insufficient role permissions", Source: authz.SourceRole, CheckedAt: now}, nil
	}
	if edge.permits != nil {
		if reason, ok := edge.permits(actor, doc); ok {
			return authz.Decision{Allowed: true, Reason: reason, Source: SourceWorkflow, CheckedAt: now}, nil
		}
	}

	req := authz.Request{
		ActorID:      actorID,
		Action:       action.String(),
		ResourceType: string(authz.ResourceDocument),
		ResourceID:   &doc.ID,
	}
	var d authz.Decision
	if probe {
		d = resolver.Evaluate(ctx, req)
	} else {
		d = resolver.CheckPermission(ctx, req)
	}
	if d.Source == authz.SourceSystem {
		return d, authz.DenialError(d)
	}
	return d, nil
}

func applyLifecycle(doc *documentDatamodel.Document, edge Edge, now time.Time) {
	doc.Status = edge.To
	switch edge.To {
	case documentDatamodel.StatusPublished:
		doc.PublishedAt = &now
		if doc.ReviewCycle > 0 {
			next := now.AddDate(0, 0, doc.ReviewCycle)
			doc.NextReviewDate = &next
		}
	case documentDatamodel.StatusArchived:
		doc.ArchivedAt = &now
		if doc.RetentionPeriod > 0 {
			disposal := now.AddDate(0, 0, doc.RetentionPeriod)
			doc.DisposalDate = &disposal
		}
	case documentDatamodel.StatusDisposed:
		doc.DisposedAt = &now
	case documentDatamodel.StatusReview:
		if edge.From == documentDatamodel.StatusPublished {
			doc.Version++
		}
	}
}

func (s *Service) successEntry(req TransitionRequest, edge Edge, record *workflowDatamodel.Transition, d authz.Decision) audit.Entry {
	entry := audit.NewEntry(req.ActorID, audit.ActionStatusChanged, string(authz.ResourceDocument), &record.DocumentID, audit.OutcomeSuccess, d.Reason).
		WithDetail("transition_id", record.ID).
		WithDetail("from_status", record.FromStatus).
		WithDetail("to_status", record.ToStatus).
		WithDetail("transition_action", transitionActionName(edge.From, edge.To)).
		WithDetail("source", d.Source)
	if record.Decision != nil {
		entry = entry.WithDetail("decision", string(*record.Decision))
	}
	if record.Comment != "" {
		entry = entry.WithDetail("comment", record.Comment)
	}
	return entry
}

// recordFailure audits a rejected or failed transition outside the rolled
// back transaction.
func (s *Service) recordFailure(ctx context.Context, req TransitionRequest, from Status, err error) {
	outcome := audit.OutcomeFailure
	reason := err.Error()
	if appErr, ok := internal.IsAppError(err); ok {
		reason = appErr.GetDetailedMessage()
		switch appErr.Type {
		case internal.ErrorTypeForbidden:
			outcome = audit.OutcomeDenied
		case internal.ErrorTypePersistence, internal.ErrorTypeInternal:
			outcome = audit.OutcomeError
		}
	} else {
		outcome = audit.OutcomeError
	}

	entry := audit.NewEntry(req.ActorID, audit.ActionStatusChanged, string(authz.ResourceDocument), &req.DocumentID, outcome, reason).
		WithDetail("to_status", req.NewStatus)
	if from != "" {
		entry = entry.WithDetail("from_status", string(from)).
			WithDetail("transition_action", transitionActionName(from, Status(strings.ToLower(req.NewStatus))))
	}
	if appendErr := s.recorder.Append(ctx, entry); appendErr != nil {
		s.logger.Warn("audit append failed", "module", "workflow", "document_id", req.DocumentID, "error", appendErr)
	}

	s.logger.Warn("document transition rejected",
		"document_id", req.DocumentID,
		"actor_id", req.ActorID,
		"from_status", from,
		"to_status", req.NewStatus,
		"reason", reason)
}

func (s *Service) publish(ctx context.Context, req TransitionRequest, result *TransitionResult) {
	if s.publisher == nil {
		return
	}
	var decision string
	if d := strings.TrimSpace(req.Decision); d != "" {
		decision = strings.ToLower(d)
	}
	event := events.NewDocumentStatusChangedEvent(req.DocumentID, result.TransitionID, result.FromStatus, result.ToStatus, req.ActorID, decision)
	// Detached from the request context: handlers outlive the request.
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to publish status change", "document_id", req.DocumentID, "error", err)
	}
}

// transitionActionName returns the TRANSITION_* name for an adjacent pair.
func transitionActionName(from, to Status) string {
	if a, ok := authz.TransitionAction(from, to); ok {
		return a.String()
	}
	return audit.ActionStatusChanged
}
