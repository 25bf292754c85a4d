package domain

import "strings"

// Role is a directory-assigned user role.
type Role string

const (
	// RoleAdmin bypasses every department gate.
	RoleAdmin Role = "admin"
	// RoleUser is subject to department and sensitivity checks.
	RoleUser Role = "user"
)

// ParseRole maps a raw directory value to a Role. Anything that is not
// an admin spelling is treated as a regular user.
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

// UserRecord is a per-request snapshot of a directory entry. The directory
// owns the data; the core only reads it, so staleness is acceptable.
type UserRecord struct {
	UserID               string
	Role                 Role
	Department           string
	EmployeeStatus       string
	TimeInPosition       string
	EmployeeJoinDate     string
	LastSecurityTraining string
	Location             string
	Region               string
	PastViolations       int
}

// IsAdmin reports whether the user holds the admin role.
func (u *UserRecord) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// InDepartment reports whether the user's department matches the label,
// case-insensitively.
func (u *UserRecord) InDepartment(label Label) bool {
	return u != nil && strings.EqualFold(u.Department, string(label))
}
