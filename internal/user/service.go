package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	"github.com/frahmantamala/docflow/internal/authz"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	"github.com/frahmantamala/docflow/pkg/logger"
)

type Repository interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Deactivate(ctx context.Context, id int64) error
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

func (s *Service) requireManageUsers(ctx context.Context, actorID int64, userID *int64) error {
	decision := s.authorizer.CheckPermission(ctx, authz.Request{
		ActorID:      actorID,
		Action:       authz.ActionManageUsers.String(),
		ResourceType: string(authz.ResourceUser),
		ResourceID:   userID,
	})
	if !decision.Allowed {
		return authz.DenialError(decision)
	}
	return nil
}

func (s *Service) CreateUser(ctx context.Context, actorID int64, dto CreateUserDTO) (*User, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireManageUsers(ctx, actorID, nil); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, internal.ErrEmailTaken
	} else if !errors.Is(err, internal.ErrUserNotFound) {
		return nil, err
	}

	role := userDatamodel.Role(dto.Role)
	if role == "" {
		role = userDatamodel.RoleUser
	}
	u := &userDatamodel.User{
		Email:      email,
		Name:       strings.TrimSpace(dto.Name),
		Department: strings.ToUpper(strings.TrimSpace(dto.Department)),
		Role:       role,
		IsManager:  dto.IsManager,
		Active:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "actor_id", actorID)
		return nil, err
	}

	s.record(ctx, audit.NewEntry(actorID, audit.ActionUserCreated, string(authz.ResourceUser), &u.ID, audit.OutcomeSuccess, "").
		WithDetail("role", string(u.Role)).
		WithDetail("department", u.Department))
	s.logger.Info("user created", "user_id", u.ID, "role", u.Role, "actor_id", actorID)
	return FromDataModel(u), nil
}

// GetUser returns the actor's own record, or any record for actors who may manage users.
func (s *Service) GetUser(ctx context.Context, actorID, userID int64) (*User, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if actorID != userID {
		if err := s.requireManageUsers(ctx, actorID, &userID); err != nil {
			return nil, err
		}
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u), nil
}

// DeactivateUser is a soft delete: the row stays so audit entries keep their actor.
func (s *Service) DeactivateUser(ctx context.Context, actorID, userID int64) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	if actorID == userID {
		return internal.NewValidationError("Cannot deactivate your own account", internal.ErrCodeInvalidInput)
	}
	if err := s.requireManageUsers(ctx, actorID, &userID); err != nil {
		return err
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Active {
		return nil
	}
	if err := s.repo.Deactivate(ctx, userID); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "user_id", userID)
		return err
	}

	s.record(ctx, audit.NewEntry(actorID, audit.ActionUserDeactivated, string(authz.ResourceUser), &userID, audit.OutcomeSuccess, ""))
	s.logger.Info("user deactivated", "user_id", userID, "actor_id", actorID)
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if err := s.recorder.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", entry.Action, "error", err)
	}
}
