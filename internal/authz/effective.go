package authz

import (
	"context"

	"github.com/frahmantamala/docflow/internal"
	"github.com/frahmantamala/docflow/internal/audit"
)

type EffectivePermissions struct {
	ActorID      int64    `json:"actor_id"`
	ResourceType string   `json:"resource_type"`
	ResourceID   *int64   `json:"resource_id,omitempty"`
	Actions      []string `json:"actions"`
	// Reason is set when nothing could be evaluated, e.g. an inactive actor.
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// GetEffectivePermissions lists the candidate actions of resourceType that
// actorID may take. It does not call CheckPermission per action: the subject
// is loaded once and each action goes through decide, the rule pipeline
// CheckPermission ends in, so the answers match. Individual probes are not
// audited; one summary entry is written instead.
func (r *Resolver) GetEffectivePermissions(ctx context.Context, actorID int64, resourceType string, resourceID *int64) (*EffectivePermissions, error) {
	rt, ok := ParseResourceType(resourceType)
	if !ok {
		return nil, internal.NewValidationError("Unknown resource type: "+resourceType, internal.ErrCodeUnknownResource)
	}

	result := &EffectivePermissions{
		ActorID:      actorID,
		ResourceType: string(rt),
		ResourceID:   resourceID,
		Actions:      []string{},
	}

	// Load with the least demanding action so role filtering never skips the document.
	s, denial, err := r.load(ctx, actorID, rt, resourceID, ActionViewDocument)
	if s == nil {
		result.Reason = denial.Reason
		result.Retryable = denial.Retryable
		r.recordEffective(ctx, result, err)
		return result, nil
	}

	for _, action := range rt.candidates() {
		if r.decide(s, action).Allowed {
			result.Actions = append(result.Actions, action.String())
		}
	}
	r.recordEffective(ctx, result, nil)
	return result, nil
}

func (r *Resolver) recordEffective(ctx context.Context, result *EffectivePermissions, storeErr error) {
	outcome := audit.OutcomeSuccess
	if result.Reason != "" {
		outcome = audit.OutcomeDenied
	}
	entry := audit.NewEntry(result.ActorID, audit.ActionEffectivePermissions, result.ResourceType, result.ResourceID, outcome, result.Reason).
		WithDetail("allowed_actions", result.Actions)
	r.append(ctx, entry)

	if storeErr != nil {
		r.logger.Error("authorization store failure",
			"module", "authz",
			"actor_id", result.ActorID,
			"error", storeErr)
		r.append(ctx, audit.NewEntry(result.ActorID, audit.ActionSystemError, result.ResourceType, result.ResourceID, audit.OutcomeError, storeErr.Error()).
			WithDetail("requested_action", audit.ActionEffectivePermissions).
			WithDetail("retryable", result.Retryable))
	}
}
