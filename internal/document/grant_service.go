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

// GrantRepository persists grants. Grants are never deleted; revocation
// flips active and stamps expires_at.
type GrantRepository interface {
	CreateGrant(ctx context.Context, grant *documentDatamodel.PermissionGrant) error
	GetGrant(ctx context.Context, id int64) (*documentDatamodel.PermissionGrant, error)
	RevokeGrant(ctx context.Context, id int64, at time.Time) error
	ListByDocument(ctx context.Context, documentID int64, includeInactive bool) ([]*documentDatamodel.PermissionGrant, error)
}

type GrantService struct {
	docs       Repository
	grants     GrantRepository
	authorizer Authorizer
	recorder   audit.Recorder
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewGrantService(docs Repository, grants GrantRepository, authorizer Authorizer, recorder audit.Recorder, log *slog.Logger) *GrantService {
	if recorder == nil {
		recorder = audit.Discard
	}
	return &GrantService{
		docs:       docs,
		grants:     grants,
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger.OrNop(log),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithStoreTimeout bounds each operation's store calls. Zero keeps the default.
func (s *GrantService) WithStoreTimeout(d time.Duration) *GrantService {
	cp := *s
	cp.timeout = d
	return &cp
}

func (s *GrantService) authorize(ctx context.Context, actorID, documentID int64) error {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return err
	}
	decision := s.authorizer.CheckPermission(ctx, authz.Request{
		ActorID:      actorID,
		Action:       authz.ActionManagePermissions.String(),
		ResourceType: string(authz.ResourceDocument),
		ResourceID:   &documentID,
	})
	if !decision.Allowed {
		return authz.DenialError(decision)
	}
	return nil
}

func (s *GrantService) GrantPermission(ctx context.Context, actorID, documentID int64, dto GrantPermissionDTO) (*Grant, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	if err := dto.Validate(now); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actorID, documentID); err != nil {
		return nil, err
	}

	grant := &documentDatamodel.PermissionGrant{
		DocumentID:     documentID,
		UserID:         dto.UserID,
		PermissionType: documentDatamodel.GrantType(dto.PermissionType),
		GrantedBy:      actorID,
		GrantedAt:      now,
		ExpiresAt:      dto.ExpiresAt,
		Active:         true,
	}
	if dto.Department != nil {
		dept := strings.ToUpper(strings.TrimSpace(*dto.Department))
		grant.Department = &dept
	}
	if grant.ExpiresAt != nil {
		exp := grant.ExpiresAt.UTC()
		grant.ExpiresAt = &exp
	}

	if err := s.grants.CreateGrant(ctx, grant); err != nil {
		s.logger.Error("failed to create grant", "error", err, "document_id", documentID)
		return nil, err
	}

	entry := audit.NewEntry(actorID, audit.ActionPermissionGranted, string(authz.ResourceDocument), &documentID, audit.OutcomeSuccess, "").
		WithDetail("grant_id", grant.ID).
		WithDetail("permission_type", string(grant.PermissionType))
	if grant.UserID != nil {
		entry = entry.WithDetail("user_id", *grant.UserID)
	}
	if grant.Department != nil {
		entry = entry.WithDetail("department", *grant.Department)
	}
	s.record(ctx, entry)

	s.logger.Info("permission granted",
		"document_id", documentID,
		"grant_id", grant.ID,
		"permission_type", grant.PermissionType,
		"actor_id", actorID)
	return GrantFromDataModel(grant), nil
}

// RevokePermission is idempotent: revoking an inactive grant is a no-op.
func (s *GrantService) RevokePermission(ctx context.Context, actorID, documentID, grantID int64) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.authorize(ctx, actorID, documentID); err != nil {
		return err
	}

	grant, err := s.grants.GetGrant(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.DocumentID != documentID {
		return internal.ErrGrantNotFound
	}
	if !grant.Active {
		return nil
	}

	if err := s.grants.RevokeGrant(ctx, grantID, s.now()); err != nil {
		s.logger.Error("failed to revoke grant", "error", err, "grant_id", grantID)
		return err
	}

	s.record(ctx, audit.NewEntry(actorID, audit.ActionPermissionRevoked, string(authz.ResourceDocument), &documentID, audit.OutcomeSuccess, "").
		WithDetail("grant_id", grantID).
		WithDetail("permission_type", string(grant.PermissionType)))
	s.logger.Info("permission revoked", "document_id", documentID, "grant_id", grantID, "actor_id", actorID)
	return nil
}

func (s *GrantService) ListGrants(ctx context.Context, actorID, documentID int64, includeInactive bool) ([]*Grant, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.authorize(ctx, actorID, documentID); err != nil {
		return nil, err
	}
	grants, err := s.grants.ListByDocument(ctx, documentID, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]*Grant, 0, len(grants))
	for _, g := range grants {
		out = append(out, GrantFromDataModel(g))
	}
	return out, nil
}

func (s *GrantService) record(ctx context.Context, entry audit.Entry) {
	if err := s.recorder.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", entry.Action, "error", err)
	}
}
