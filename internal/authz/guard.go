package authz

import (
	"strings"

	"workitem-system/internal/entities"
	"workitem-system/pkg/constants"
)

// Action names every mutation entry point must check before touching state.
const (
	ActionView       = "workitems:view"
	ActionCreate     = "workitems:create"
	ActionClaim      = "workitems:claim"
	ActionTransition = "workitems:transition"
	ActionReassign   = "workitems:reassign"
	ActionEditSLA    = "workitems:edit-sla"
	ActionDelete     = "workitems:delete"
	ActionStaleCheck = "workitems:stale-check"
	ActionExport     = "reports:export"
)

// Scope answers "on which items may this role perform the action".
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwned
	ScopeUnassigned
	ScopeAny
)

// capabilities is the single (role, action) → scope table. Scattered role
// checks at call sites are forbidden; this is the chokepoint.
var capabilities = map[string]map[string]Scope{
	constants.RoleManager: {
		ActionView:       ScopeAny,
		ActionCreate:     ScopeAny,
		ActionClaim:      ScopeAny,
		ActionTransition: ScopeAny,
		ActionReassign:   ScopeAny,
		ActionEditSLA:    ScopeAny,
		ActionDelete:     ScopeAny,
		ActionStaleCheck: ScopeAny,
		ActionExport:     ScopeAny,
	},
	constants.RoleSupervisor: {
		ActionView:       ScopeAny,
		ActionCreate:     ScopeAny,
		ActionClaim:      ScopeAny,
		ActionTransition: ScopeAny,
		ActionReassign:   ScopeAny,
		ActionEditSLA:    ScopeAny,
		ActionStaleCheck: ScopeAny,
		ActionExport:     ScopeAny,
	},
	constants.RoleImplementationAnalyst: {
		ActionView:       ScopeAny,
		ActionCreate:     ScopeAny,
		ActionClaim:      ScopeUnassigned,
		ActionTransition: ScopeOwned,
		ActionEditSLA:    ScopeOwned,
	},
	constants.RoleMovementAnalyst: {
		ActionView:       ScopeAny,
		ActionCreate:     ScopeAny,
		ActionClaim:      ScopeUnassigned,
		ActionTransition: ScopeOwned,
		ActionEditSLA:    ScopeOwned,
	},
	constants.RoleConsultant: {
		ActionView:   ScopeOwned,
		ActionCreate: ScopeAny,
	},
}

// Can reports whether the role holds the capability at all, regardless of
// target. Target-sensitive checks go through Authorize.
func Can(role, action string) bool {
	scopes, ok := capabilities[role]
	if !ok {
		return false
	}
	scope, ok := scopes[action]
	return ok && scope != ScopeNone
}

// Authorize is the authorization predicate. A nil item means the action has
// no target yet (creation, stale-check, export).
func Authorize(actor entities.Actor, action string, item *entities.WorkItem) bool {
	scopes, ok := capabilities[actor.Role]
	if !ok {
		return false
	}
	scope, ok := scopes[action]
	if !ok || scope == ScopeNone {
		return false
	}
	if item == nil {
		return scope == ScopeAny || action == ActionCreate
	}

	// Movement analysts work the request queue only; proposal transitions
	// belong to the implementation pool.
	if actor.Role == constants.RoleMovementAnalyst &&
		item.Kind == entities.KindProposal && action == ActionTransition {
		return false
	}

	switch scope {
	case ScopeAny:
		return true
	case ScopeUnassigned:
		return !item.IsAssigned()
	case ScopeOwned:
		return Owns(actor, item)
	}
	return false
}

// Owns implements the ownership rule: creator, assignee, or — for proposals
// only — the legacy consultant-email identity fallback.
func Owns(actor entities.Actor, item *entities.WorkItem) bool {
	if item.CreatedBy == actor.ID {
		return true
	}
	if item.AssignedTo.Valid && item.AssignedTo.UUID == actor.ID {
		return true
	}
	if item.Kind == entities.KindProposal && item.ConsultantEmail.Valid && actor.Email != "" {
		return strings.EqualFold(item.ConsultantEmail.String, actor.Email)
	}
	return false
}
