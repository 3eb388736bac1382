package constants

// User roles. Managers and supervisors carry the manager override; the two
// analyst roles are the claim pool; consultants create and view their own.
const (
	RoleManager               = "MANAGER"
	RoleSupervisor            = "SUPERVISOR"
	RoleImplementationAnalyst = "IMPLEMENTATION_ANALYST"
	RoleMovementAnalyst       = "MOVEMENT_ANALYST"
	RoleConsultant            = "CONSULTANT"
)

func IsManagerRole(role string) bool {
	return role == RoleManager || role == RoleSupervisor
}

func IsAnalystRole(role string) bool {
	return role == RoleImplementationAnalyst || role == RoleMovementAnalyst
}
