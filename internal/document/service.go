package document

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	"github.com/frahmantamala/docflow/internal/authz"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	"github.com/frahmantamala/docflow/pkg/logger"
)

// Repository is the persistence port for documents.
type Repository interface {
	Create(ctx context.Context, doc *documentDatamodel.Document) error
	GetByID(ctx context.Context, id int64) (*documentDatamodel.Document, error)
	// Update and Delete apply only while the stored status still equals from;
	// otherwise they return internal.ErrStatusConflict.
	Update(ctx context.Context, doc *documentDatamodel.Document, from documentDatamodel.Status) error
	Delete(ctx context.Context, id int64, from documentDatamodel.Status) error
	List(ctx context.Context, filter ListFilter) ([]*documentDatamodel.Document, error)
}

type ListFilter struct {
	Department string
	Status     string
	Limit      int
	Offset     int
}

type Authorizer interface {
	CheckPermission(ctx context.Context, req authz.Request) authz.Decision
}

type Service struct {
	repo       Repository
	authorizer Authorizer
	recorder   audit.Recorder
	timeout    time.Duration
	logger     *slog.Logger
}

func NewService(repo Repository, authorizer Authorizer, recorder audit.Recorder, log *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Service{
		repo:       repo,
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger.OrNop(log),
	}
}

// WithStoreTimeout bounds each operation's store calls. Zero keeps the default.
func (s *Service) WithStoreTimeout(d time.Duration) *Service {
	cp := *s
	cp.timeout = d
	return &cp
}

func (s *Service) authorize(ctx context.Context, actorID int64, action authz.Action, documentID *int64) error {
	decision := s.authorizer.CheckPermission(ctx, authz.Request{
		ActorID:      actorID,
		Action:       action.String(),
		ResourceType: string(authz.ResourceDocument),
		ResourceID:   documentID,
	})
	if !decision.Allowed {
		return authz.DenialError(decision)
	}
	return nil
}

func (s *Service) CreateDocument(ctx context.Context, actorID int64, dto CreateDocumentDTO) (*Document, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := dto.Validate(); err != nil {
		s.logger.Error("document validation failed", "error", err, "actor_id", actorID)
		return nil, err
	}
	if err := s.authorize(ctx, actorID, authz.ActionCreateDocument, nil); err != nil {
		return nil, err
	}

	securityLevel := documentDatamodel.SecurityInternal
	if dto.SecurityLevel != "" {
		securityLevel = documentDatamodel.SecurityLevel(dto.SecurityLevel)
	}
	reviewCycle := dto.ReviewCycle
	if reviewCycle == 0 {
		reviewCycle = DefaultReviewCycleDays
	}
	retention := dto.RetentionPeriod
	if retention == 0 {
		retention = DefaultRetentionPeriodDays
	}

	doc := &documentDatamodel.Document{
		Title:           strings.TrimSpace(dto.Title),
		Type:            documentDatamodel.Type(dto.Type),
		Department:      strings.ToUpper(strings.TrimSpace(dto.Department)),
		Status:          documentDatamodel.StatusDraft,
		SecurityLevel:   securityLevel,
		AuthorID:        actorID,
		ReviewerID:      dto.ReviewerID,
		ApproverID:      dto.ApproverID,
		ReviewCycle:     reviewCycle,
		RetentionPeriod: retention,
		Version:         1,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("failed to create document", "error", err, "actor_id", actorID)
		return nil, err
	}

	s.record(ctx, audit.NewEntry(actorID, audit.ActionDocumentCreated, string(authz.ResourceDocument), &doc.ID, audit.OutcomeSuccess, "").
		WithDetail("type", string(doc.Type)).
		WithDetail("department", doc.Department))

	s.logger.Info("document created", "document_id", doc.ID, "actor_id", actorID, "type", doc.Type)
	return FromDataModel(doc), nil
}

func (s *Service) GetDocument(ctx context.Context, actorID, documentID int64) (*Document, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, authz.ActionViewDocument, &documentID); err != nil {
		return nil, err
	}
	return FromDataModel(doc), nil
}

// ListDocuments returns the page filtered down to documents the actor may view.
func (s *Service) ListDocuments(ctx context.Context, actorID int64, filter ListFilter) ([]*Document, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	docs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*Document, 0, len(docs))
	for _, doc := range docs {
		id := doc.ID
		if s.authorize(ctx, actorID, authz.ActionViewDocument, &id) == nil {
			out = append(out, FromDataModel(doc))
		}
	}
	return out, nil
}

func (s *Service) UpdateDocument(ctx context.Context, actorID, documentID int64, dto UpdateDocumentDTO) (*Document, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := dto.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, authz.ActionEditDocument, &documentID); err != nil {
		return nil, err
	}
	if dto.Empty() {
		return FromDataModel(doc), nil
	}
	from := doc.Status

	var changed []string
	if dto.Title != nil {
		doc.Title = strings.TrimSpace(*dto.Title)
		changed = append(changed, "title")
	}
	if dto.SecurityLevel != nil {
		doc.SecurityLevel = documentDatamodel.SecurityLevel(*dto.SecurityLevel)
		changed = append(changed, "security_level")
	}
	if dto.ReviewerID != nil {
		doc.ReviewerID = dto.ReviewerID
		changed = append(changed, "reviewer_id")
	}
	if dto.ApproverID != nil {
		doc.ApproverID = dto.ApproverID
		changed = append(changed, "approver_id")
	}
	if dto.ReviewCycle != nil {
		doc.ReviewCycle = *dto.ReviewCycle
		changed = append(changed, "review_cycle")
	}
	if dto.RetentionPeriod != nil {
		doc.RetentionPeriod = *dto.RetentionPeriod
		changed = append(changed, "retention_period")
	}
	doc.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, doc, from); err != nil {
		s.logger.Error("failed to update document", "error", err, "document_id", documentID)
		return nil, err
	}

	s.record(ctx, audit.NewEntry(actorID, audit.ActionDocumentUpdated, string(authz.ResourceDocument), &documentID, audit.OutcomeSuccess, "").
		WithDetail("fields", changed))
	return FromDataModel(doc), nil
}

func (s *Service) DeleteDocument(ctx context.Context, actorID, documentID int64) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, authz.ActionDeleteDocument, &documentID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, documentID, doc.Status); err != nil {
		s.logger.Error("failed to delete document", "error", err, "document_id", documentID)
		return err
	}

	s.record(ctx, audit.NewEntry(actorID, audit.ActionDocumentDeleted, string(authz.ResourceDocument), &documentID, audit.OutcomeSuccess, ""))
	s.logger.Info("document deleted", "document_id", documentID, "actor_id", actorID)
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if err := s.recorder.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", entry.Action, "error", err)
	}
}
