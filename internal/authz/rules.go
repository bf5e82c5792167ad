package authz

import (
	"fmt"
	"strings"
	"time"

	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
)

// Decision sources.
const (
	SourceAdmin      = "admin"
	SourceRole       = "role"
	SourceGrant      = "grant"
	SourceAuthor     = "author"
	SourceDepartment = "department"
	SourceSecurity   = "security_gate"
	SourceStatus     = "status_gate"
	SourceDefault    = "default"
	SourceSystem     = "system"
)

// subject is everything the document pipeline reads. It is loaded once per
// request and never mutated by rules.
type subject struct {
	user   *userDatamodel.User
	doc    *documentDatamodel.Document
	grants []*documentDatamodel.PermissionGrant
	now    time.Time
}

// rule returns a decision, or false to fall through to the next rule.
type rule func(s *subject, action Action, defaults DepartmentDefaults) (Decision, bool)

// gate may only turn an allow into a deny.
type gate func(s *subject, action Action, d Decision) Decision

var documentRules = []rule{grantRule, authorRule, departmentRule}

var documentGates = []gate{securityGate, statusGate}

func evaluateDocument(s *subject, action Action, defaults DepartmentDefaults) Decision {
	decision := Decision{
		Allowed: false,
		Reason:  fmt.Sprintf("No grant or default access permits %s on this document", action),
		Source:  SourceDefault,
	}
	for _, r := range documentRules {
		if d, ok := r(s, action, defaults); ok {
			decision = d
			break
		}
	}
	if !decision.Allowed {
		return decision
	}
	for _, g := range documentGates {
		decision = g(s, action, decision)
		if !decision.Allowed {
			break
		}
	}
	return decision
}

func grantRule(s *subject, action Action, _ DepartmentDefaults) (Decision, bool) {
	minimum, ok := minimumGrant[action.base()]
	if !ok {
		return Decision{}, false
	}

	var best documentDatamodel.GrantType
	for _, g := range s.grants {
		if !g.Effective(s.now) || !grantTargets(g, s.doc, s.user) {
			continue
		}
		if g.PermissionType.Rank() >= minimum.Rank() && g.PermissionType.Rank() > best.Rank() {
			best = g.PermissionType
		}
	}
	if best == "" {
		return Decision{}, false
	}
	return Decision{
		Allowed:   true,
		Reason:    "Explicit grant: " + string(best),
		GrantType: best,
		Source:    SourceGrant,
	}, true
}

func grantTargets(g *documentDatamodel.PermissionGrant, doc *documentDatamodel.Document, user *userDatamodel.User) bool {
	if g.DocumentID != doc.ID {
		return false
	}
	if g.UserID != nil {
		return *g.UserID == user.ID
	}
	return g.Department != nil && strings.EqualFold(*g.Department, user.Department)
}

func authorRule(s *subject, action Action, _ DepartmentDefaults) (Decision, bool) {
	if s.doc.AuthorID != s.user.ID {
		return Decision{}, false
	}
	switch action.base() {
	case ActionViewDocument, ActionEditDocument, ActionCreateVersion, ActionViewHistory, ActionSubmitForReview:
		return Decision{Allowed: true, Reason: "Document author", Source: SourceAuthor}, true
	case ActionDeleteDocument:
		if s.doc.Status == documentDatamodel.StatusDraft {
			return Decision{Allowed: true, Reason: "Document author may delete a draft", Source: SourceAuthor}, true
		}
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Authors can only delete draft documents (status is %s)", s.doc.Status),
			Source:  SourceAuthor,
		}, true
	}
	return Decision{}, false
}

func departmentRule(s *subject, action Action, defaults DepartmentDefaults) (Decision, bool) {
	if !defaults.Allows(s.user.Department, s.doc.Type) {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Department %s has no default access to document type %s", s.user.Department, s.doc.Type),
			Source:  SourceDepartment,
		}, true
	}

	switch action.base() {
	case ActionViewDocument, ActionViewHistory:
		return Decision{Allowed: true, Reason: "Department default access", Source: SourceDepartment}, true
	case ActionEditDocument:
		if s.doc.Status == documentDatamodel.StatusDraft && strings.EqualFold(s.doc.Department, s.user.Department) {
			return Decision{Allowed: true, Reason: "Department default access to own draft", Source: SourceDepartment}, true
		}
		return Decision{
			Allowed: false,
			Reason:  "Department default access only allows editing drafts owned by the same department",
			Source:  SourceDepartment,
		}, true
	}
	return Decision{}, false
}

func securityGate(s *subject, _ Action, d Decision) Decision {
	if d.GrantType == documentDatamodel.GrantAdmin {
		return d
	}
	clearance := Clearance(s.user.Role)
	rating := documentRank(s.doc.SecurityLevel)
	if clearance >= rating {
		return d
	}
	return Decision{
		Allowed: false,
		Reason: fmt.Sprintf("Insufficient security clearance: role %s (%d) cannot access %s (%d) documents",
			s.user.Role, clearance, s.doc.SecurityLevel, rating),
		Source: SourceSecurity,
	}
}

func statusGate(s *subject, action Action, d Decision) Decision {
	switch s.doc.Status {
	case documentDatamodel.StatusDisposed:
		return disposedDenial()
	case documentDatamodel.StatusPublished:
		base := action.base()
		if (base == ActionEditDocument || base == ActionDeleteDocument) && d.GrantType != documentDatamodel.GrantAdmin {
			return Decision{
				Allowed: false,
				Reason:  "Published documents cannot be modified; create a new version instead",
				Source:  SourceStatus,
			}
		}
	case documentDatamodel.StatusArchived:
		switch action.base() {
		case ActionViewDocument, ActionViewHistory, ActionRestoreVersion, ActionDisposeDocument:
		default:
			return Decision{
				Allowed: false,
				Reason:  "Archived documents only allow viewing, restoring or disposal",
				Source:  SourceStatus,
			}
		}
	}
	return d
}

func disposedDenial() Decision {
	return Decision{Allowed: false, Reason: "Disposed documents are immutable", Source: SourceStatus}
}
