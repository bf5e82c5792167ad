package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
	"github.com/frahmantamala/docflow/pkg/logger"
)

// Store is the read side of the resource store the resolver consults.
// Missing records are reported as internal.ErrUserNotFound / ErrDocumentNotFound.
type Store interface {
	GetUser(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetDocument(ctx context.Context, id int64) (*documentDatamodel.Document, error)
	// ListGrants returns active grants on documentID targeting userID or department.
	ListGrants(ctx context.Context, documentID, userID int64, department string) ([]*documentDatamodel.PermissionGrant, error)
}

type Request struct {
	ActorID      int64          `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   *int64         `json:"resource_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// Decision is the outcome of one check. A denial is a normal result, not an error.
type Decision struct {
	Allowed   bool                        `json:"allowed"`
	Reason    string                      `json:"reason"`
	GrantType documentDatamodel.GrantType `json:"grant_type,omitempty"`
	Source    string                      `json:"source,omitempty"`
	Retryable bool                        `json:"retryable,omitempty"`
	CheckedAt time.Time                   `json:"checked_at"`
}

type Config struct {
	DepartmentDefaults map[string][]string
	StoreTimeout       time.Duration
}

// Resolver answers authorization questions. It keeps no per-request state and
// is safe for concurrent use.
type Resolver struct {
	store    Store
	recorder audit.Recorder
	defaults DepartmentDefaults
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewResolver(store Store, recorder audit.Recorder, cfg Config, log *slog.Logger) *Resolver {
	if recorder == nil {
		recorder = audit.Discard
	}
	return &Resolver{
		store:    store,
		recorder: recorder,
		defaults: NewDepartmentDefaults(cfg.DepartmentDefaults),
		timeout:  cfg.StoreTimeout,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// WithStore returns a resolver reading from store, e.g. a transaction-bound one.
func (r *Resolver) WithStore(store Store) *Resolver {
	cp := *r
	cp.store = store
	return &cp
}

// WithClock overrides the time source used for grant expiry.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	cp := *r
	cp.now = now
	return &cp
}

func (r *Resolver) CheckPermission(ctx context.Context, req Request) Decision {
	decision, storeErr := r.check(ctx, req)
	r.record(ctx, req, decision, storeErr)
	return decision
}

// Evaluate answers like CheckPermission but writes nothing to the audit
// trail. It serves read-only probes such as listing available transitions.
func (r *Resolver) Evaluate(ctx context.Context, req Request) Decision {
	decision, storeErr := r.check(ctx, req)
	if storeErr != nil {
		r.logger.Error("authorization store failure",
			"module", "authz",
			"actor_id", req.ActorID,
			"action", req.Action,
			"error", storeErr)
	}
	return decision
}

func (r *Resolver) check(ctx context.Context, req Request) (Decision, error) {
	action, ok := ParseAction(req.Action)
	if !ok {
		return r.deny("Unknown action: "+req.Action, SourceDefault), nil
	}
	resourceType, ok := ParseResourceType(req.ResourceType)
	if !ok {
		return r.deny("Unknown resource type: "+req.ResourceType, SourceDefault), nil
	}

	s, denial, err := r.load(ctx, req.ActorID, resourceType, req.ResourceID, action)
	if s == nil {
		return denial, err
	}
	return r.decide(s, action), nil
}

// load fetches the actor, document and grants. A nil subject means the
// request is already decided by the returned denial.
func (r *Resolver) load(ctx context.Context, actorID int64, resourceType ResourceType, resourceID *int64, action Action) (*subject, Decision, error) {
	if actorID <= 0 {
		return nil, r.deny("User not found", SourceDefault), nil
	}

	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.store.GetUser(ctx, actorID)
	if err != nil {
		if isNotFound(err) {
			return nil, r.deny("User not found", SourceDefault), nil
		}
		return nil, r.storeFailure(err), err
	}
	if !user.Active {
		return nil, r.deny("User account is inactive", SourceDefault), nil
	}

	s := &subject{user: user, now: r.now()}

	if resourceType != ResourceDocument || resourceID == nil {
		return s, Decision{}, nil
	}
	// Role denials need no document lookup.
	if user.Role != userDatamodel.RoleAdmin && !RoleAllows(user.Role, action) {
		return s, Decision{}, nil
	}

	doc, err := r.store.GetDocument(ctx, *resourceID)
	if err != nil {
		if isNotFound(err) {
			return nil, r.deny("Document not found", SourceDefault), nil
		}
		return nil, r.storeFailure(err), err
	}
	s.doc = doc

	if user.Role == userDatamodel.RoleAdmin {
		return s, Decision{}, nil
	}

	grants, err := r.store.ListGrants(ctx, doc.ID, user.ID, user.Department)
	if err != nil {
		return nil, r.storeFailure(err), err
	}
	s.grants = grants
	return s, Decision{}, nil
}

// decide is pure: it reads only the loaded subject.
func (r *Resolver) decide(s *subject, action Action) Decision {
	var d Decision
	switch {
	case s.user.Role == userDatamodel.RoleAdmin:
		if s.doc != nil && s.doc.Status == documentDatamodel.StatusDisposed {
			d = disposedDenial()
		} else {
			d = Decision{Allowed: true, Reason: "Admin access", Source: SourceAdmin}
		}
	case !RoleAllows(s.user.Role, action):
		d = Decision{Allowed: false, Reason: "Insufficient role permissions", Source: SourceRole}
	case s.doc == nil:
		d = Decision{Allowed: true, Reason: fmt.Sprintf("Role %s permits %s", s.user.Role, action), Source: SourceRole}
	default:
		d = evaluateDocument(s, action, r.defaults)
	}
	d.CheckedAt = s.now
	return d
}

func (r *Resolver) deny(reason, source string) Decision {
	return Decision{Allowed: false, Reason: reason, Source: source, CheckedAt: r.now()}
}

func (r *Resolver) storeFailure(err error) Decision {
	return Decision{
		Allowed:   false,
		Reason:    "Authorization store error: " + err.Error(),
		Source:    SourceSystem,
		Retryable: internal.IsBusy(err),
		CheckedAt: r.now(),
	}
}

// record writes the decision to the audit trail. Failures are logged only.
func (r *Resolver) record(ctx context.Context, req Request, d Decision, storeErr error) {
	outcome := audit.OutcomeDenied
	if d.Allowed {
		outcome = audit.OutcomeAllowed
	}

	entry := audit.NewEntry(req.ActorID, req.Action, req.ResourceType, req.ResourceID, outcome, d.Reason).
		WithDetail("source", d.Source)
	if d.GrantType != "" {
		entry = entry.WithDetail("grant_type", string(d.GrantType))
	}
	if len(req.Context) > 0 {
		entry = entry.WithDetail("context", req.Context)
	}
	r.append(ctx, entry)

	if storeErr != nil {
		r.logger.Error("authorization store failure",
			"module", "authz",
			"actor_id", req.ActorID,
			"action", req.Action,
			"retryable", d.Retryable,
			"error", storeErr)
		sysEntry := audit.NewEntry(req.ActorID, audit.ActionSystemError, req.ResourceType, req.ResourceID, audit.OutcomeError, storeErr.Error()).
			WithDetail("requested_action", req.Action).
			WithDetail("retryable", d.Retryable)
		r.append(ctx, sysEntry)
	}
}

func (r *Resolver) append(ctx context.Context, entry audit.Entry) {
	if err := r.recorder.Append(ctx, entry); err != nil {
		r.logger.Warn("audit append failed",
			"module", "authz",
			"action", entry.Action,
			"error", err)
	}
}

func isNotFound(err error) bool {
	if errors.Is(err, internal.ErrUserNotFound) || errors.Is(err, internal.ErrDocumentNotFound) {
		return true
	}
	appErr, ok := internal.IsAppError(err)
	return ok && appErr.Type == internal.ErrorTypeNotFound
}
