package auth

import "strings"

// Role represents a back-office user role.
type Role string

const (
	// RoleViewer reads reports.
	RoleViewer Role = "viewer"
	// RoleAccountant prepares and dry-runs imports.
	RoleAccountant Role = "accountant"
	// RoleAdmin posts imports to the ledger.
	RoleAdmin Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:     1,
	RoleAccountant: 2,
	RoleAdmin:      3,
}

// NormalizeRole validates a role string, ignoring case and surrounding space.
func NormalizeRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRanks[role] >= roleRanks[required]
}
