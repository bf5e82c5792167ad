package authz

import (
	"strings"

	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/user"
)

// Action is the closed vocabulary of requestable operations.
type Action uint8

const (
	ActionViewDocument Action = iota
	ActionEditDocument
	ActionCreateDocument
	ActionDeleteDocument
	ActionCreateVersion
	ActionRestoreVersion
	ActionViewHistory
	ActionSubmitForReview
	ActionApproveDocument
	ActionRejectDocument
	ActionPublishDocument
	ActionArchiveDocument
	ActionDisposeDocument
	ActionManagePermissions
	ActionManageUsers
	ActionViewAuditLog

	ActionTransitionDraftToReview
	ActionTransitionDraftToArchived
	ActionTransitionReviewToPublished
	ActionTransitionReviewToDraft
	ActionTransitionReviewToArchived
	ActionTransitionPublishedToArchived
	ActionTransitionPublishedToReview
	ActionTransitionArchivedToDisposed
	ActionTransitionArchivedToPublished

	actionCount
)

var actionNames = [...]string{
	ActionViewDocument:      "VIEW_DOCUMENT",
	ActionEditDocument:      "EDIT_DOCUMENT",
	ActionCreateDocument:    "CREATE_DOCUMENT",
	ActionDeleteDocument:    "DELETE_DOCUMENT",
	ActionCreateVersion:     "CREATE_VERSION",
	ActionRestoreVersion:    "RESTORE_VERSION",
	ActionViewHistory:       "VIEW_HISTORY",
	ActionSubmitForReview:   "SUBMIT_FOR_REVIEW",
	ActionApproveDocument:   "APPROVE_DOCUMENT",
	ActionRejectDocument:    "REJECT_DOCUMENT",
	ActionPublishDocument:   "PUBLISH_DOCUMENT",
	ActionArchiveDocument:   "ARCHIVE_DOCUMENT",
	ActionDisposeDocument:   "DISPOSE_DOCUMENT",
	ActionManagePermissions: "MANAGE_PERMISSIONS",
	ActionManageUsers:       "MANAGE_USERS",
	ActionViewAuditLog:      "VIEW_AUDIT_LOG",

	ActionTransitionDraftToReview:       "TRANSITION_DRAFT_TO_REVIEW",
	ActionTransitionDraftToArchived:     "TRANSITION_DRAFT_TO_ARCHIVED",
	ActionTransitionReviewToPublished:   "TRANSITION_REVIEW_TO_PUBLISHED",
	ActionTransitionReviewToDraft:       "TRANSITION_REVIEW_TO_DRAFT",
	ActionTransitionReviewToArchived:    "TRANSITION_REVIEW_TO_ARCHIVED",
	ActionTransitionPublishedToArchived: "TRANSITION_PUBLISHED_TO_ARCHIVED",
	ActionTransitionPublishedToReview:   "TRANSITION_PUBLISHED_TO_REVIEW",
	ActionTransitionArchivedToDisposed:  "TRANSITION_ARCHIVED_TO_DISPOSED",
	ActionTransitionArchivedToPublished: "TRANSITION_ARCHIVED_TO_PUBLISHED",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, actionCount)
	for a := Action(0); a < actionCount; a++ {
		m[actionNames[a]] = a
	}
	return m
}()

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return "UNKNOWN_ACTION"
}

func (a Action) Valid() bool {
	return a < actionCount
}

// ParseAction rejects names outside the vocabulary.
func ParseAction(name string) (Action, bool) {
	a, ok := actionsByName[name]
	return a, ok
}

// AllActions returns the vocabulary in declaration order.
func AllActions() []Action {
	actions := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		actions = append(actions, a)
	}
	return actions
}

// TransitionAction returns the generic action gating from -> to, if the edge exists.
func TransitionAction(from, to documentDatamodel.Status) (Action, bool) {
	a, ok := ParseAction("TRANSITION_" + strings.ToUpper(string(from)) + "_TO_" + strings.ToUpper(string(to)))
	if !ok || a < ActionTransitionDraftToReview {
		return 0, false
	}
	return a, true
}

// equivalent maps a transition action to the document action it is judged as.
var equivalent = map[Action]Action{
	ActionTransitionDraftToReview:       ActionSubmitForReview,
	ActionTransitionPublishedToReview:   ActionSubmitForReview,
	ActionTransitionReviewToPublished:   ActionPublishDocument,
	ActionTransitionReviewToDraft:       ActionRejectDocument,
	ActionTransitionDraftToArchived:     ActionArchiveDocument,
	ActionTransitionReviewToArchived:    ActionArchiveDocument,
	ActionTransitionPublishedToArchived: ActionArchiveDocument,
	ActionTransitionArchivedToDisposed:  ActionDisposeDocument,
	ActionTransitionArchivedToPublished: ActionRestoreVersion,
}

func (a Action) base() Action {
	if eq, ok := equivalent[a]; ok {
		return eq
	}
	return a
}

type ResourceType string

const (
	ResourceDocument   ResourceType = "document"
	ResourceUser       ResourceType = "user"
	ResourcePermission ResourceType = "permission"
	ResourceAuditLog   ResourceType = "audit_log"
	ResourceSystem     ResourceType = "system"
)

func ParseResourceType(name string) (ResourceType, bool) {
	switch rt := ResourceType(name); rt {
	case ResourceDocument, ResourceUser, ResourcePermission, ResourceAuditLog, ResourceSystem:
		return rt, true
	default:
		return "", false
	}
}

// candidates lists the actions probed per resource type.
func (rt ResourceType) candidates() []Action {
	switch rt {
	case ResourceDocument:
		var actions []Action
		for _, a := range AllActions() {
			if a != ActionManageUsers && a != ActionViewAuditLog {
				actions = append(actions, a)
			}
		}
		return actions
	case ResourceUser:
		return []Action{ActionManageUsers}
	case ResourcePermission:
		return []Action{ActionManagePermissions}
	case ResourceAuditLog:
		return []Action{ActionViewAuditLog}
	case ResourceSystem:
		return []Action{ActionManageUsers, ActionViewAuditLog, ActionManagePermissions}
	default:
		return nil
	}
}

type roleMask uint8

const (
	maskAdmin roleMask = 1 << iota
	maskUser
	maskGuest

	anyRole    = maskAdmin | maskUser | maskGuest
	staffRoles = maskAdmin | maskUser
)

// roleActions is the static role -> action table.
var roleActions = [...]roleMask{
	ActionViewDocument:      anyRole,
	ActionEditDocument:      staffRoles,
	ActionCreateDocument:    staffRoles,
	ActionDeleteDocument:    staffRoles,
	ActionCreateVersion:     staffRoles,
	ActionRestoreVersion:    staffRoles,
	ActionViewHistory:       anyRole,
	ActionSubmitForReview:   staffRoles,
	ActionApproveDocument:   staffRoles,
	ActionRejectDocument:    staffRoles,
	ActionPublishDocument:   staffRoles,
	ActionArchiveDocument:   staffRoles,
	ActionDisposeDocument:   staffRoles,
	ActionManagePermissions: staffRoles,
	ActionManageUsers:       maskAdmin,
	ActionViewAuditLog:      maskAdmin,

	ActionTransitionDraftToReview:       staffRoles,
	ActionTransitionDraftToArchived:     staffRoles,
	ActionTransitionReviewToPublished:   staffRoles,
	ActionTransitionReviewToDraft:       staffRoles,
	ActionTransitionReviewToArchived:    staffRoles,
	ActionTransitionPublishedToArchived: staffRoles,
	ActionTransitionPublishedToReview:   staffRoles,
	ActionTransitionArchivedToDisposed:  staffRoles,
	ActionTransitionArchivedToPublished: staffRoles,
}

// Adding an action without extending both tables fails to compile.
func _() {
	var x [1]struct{}
	_ = x[len(roleActions)-int(actionCount)]
	_ = x[len(actionNames)-int(actionCount)]
}

func maskOf(role userDatamodel.Role) roleMask {
	switch role {
	case userDatamodel.RoleAdmin:
		return maskAdmin
	case userDatamodel.RoleUser:
		return maskUser
	case userDatamodel.RoleGuest:
		return maskGuest
	default:
		return 0
	}
}

// RoleAllows reports whether the static role table lets role request action.
func RoleAllows(role userDatamodel.Role, action Action) bool {
	if !action.Valid() {
		return false
	}
	return roleActions[action]&maskOf(role) != 0
}

// Clearance is the highest security level rank a role may access.
func Clearance(role userDatamodel.Role) int {
	switch role {
	case userDatamodel.RoleAdmin:
		return documentDatamodel.SecurityRestricted.Rank()
	case userDatamodel.RoleUser:
		return documentDatamodel.SecurityInternal.Rank()
	default:
		return documentDatamodel.SecurityPublic.Rank()
	}
}
