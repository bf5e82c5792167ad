package authz

import (
	"strings"

	documentDatamodel "github.com/frahmantamala/docflow/internal/core/datamodel/document"
)

// DepartmentDefaults maps a department to the document types its members
// may view without an explicit grant.
type DepartmentDefaults map[string]map[documentDatamodel.Type]struct{}

var builtinDepartmentDefaults = map[string][]string{
	"QC":         {"SOP", "WI", "TD", "FORM", "RECORD"},
	"PRODUCTION": {"SOP", "WI", "FORM"},
	"RND":        {"TD", "SOP", "MANUAL"},
	"HR":         {"POLICY", "FORM", "MANUAL"},
}

// NewDepartmentDefaults builds the table from configuration. Unknown document
// types are skipped; a nil or empty source yields the built-in table.
func NewDepartmentDefaults(source map[string][]string) DepartmentDefaults {
	if len(source) == 0 {
		source = builtinDepartmentDefaults
	}
	defaults := make(DepartmentDefaults, len(source))
	for department, types := range source {
		set := make(map[documentDatamodel.Type]struct{}, len(types))
		for _, raw := range types {
			t := documentDatamodel.Type(strings.ToUpper(strings.TrimSpace(raw)))
			if t.Valid() {
				set[t] = struct{}{}
			}
		}
		defaults[strings.ToUpper(department)] = set
	}
	return defaults
}

func (d DepartmentDefaults) Allows(department string, docType documentDatamodel.Type) bool {
	_, ok := d[strings.ToUpper(department)][docType]
	return ok
}

// minimumGrant is the lowest grant level satisfying each document action.
// Actions missing here cannot be satisfied by a grant.
var minimumGrant = map[Action]documentDatamodel.GrantType{
	ActionViewDocument:      documentDatamodel.GrantRead,
	ActionViewHistory:       documentDatamodel.GrantRead,
	ActionEditDocument:      documentDatamodel.GrantWrite,
	ActionCreateVersion:     documentDatamodel.GrantWrite,
	ActionRestoreVersion:    documentDatamodel.GrantWrite,
	ActionSubmitForReview:   documentDatamodel.GrantWrite,
	ActionApproveDocument:   documentDatamodel.GrantApprove,
	ActionRejectDocument:    documentDatamodel.GrantApprove,
	ActionPublishDocument:   documentDatamodel.GrantApprove,
	ActionDeleteDocument:    documentDatamodel.GrantAdmin,
	ActionArchiveDocument:   documentDatamodel.GrantAdmin,
	ActionDisposeDocument:   documentDatamodel.GrantAdmin,
	ActionManagePermissions: documentDatamodel.GrantAdmin,
}

// RequiredGrants lists every grant type that satisfies action, lowest first.
func RequiredGrants(action Action) []documentDatamodel.GrantType {
	minimum, ok := minimumGrant[action.base()]
	if !ok {
		return nil
	}
	var out []documentDatamodel.GrantType
	for _, g := range []documentDatamodel.GrantType{
		documentDatamodel.GrantRead,
		documentDatamodel.GrantWrite,
		documentDatamodel.GrantApprove,
		documentDatamodel.GrantAdmin,
	} {
		if g.Rank() >= minimum.Rank() {
			out = append(out, g)
		}
	}
	return out
}

// documentRank treats an unrecognised security level as the most restrictive.
func documentRank(level documentDatamodel.SecurityLevel) int {
	if !level.Valid() {
		return documentDatamodel.SecurityRestricted.Rank()
	}
	return level.Rank()
}
