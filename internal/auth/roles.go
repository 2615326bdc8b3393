package auth

// Role is the desk permission carried in the token's role claim.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleAccountant Role = "accountant"
	RoleAdmin      Role = "admin"
)

// NormalizeRole accepts only the three desk roles.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleAccountant, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast reports whether role ranks at or above required. An admin can do
// anything an accountant can.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleAccountant:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
