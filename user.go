package safecheck

import "slices"

// Role is the acting user's role.
type Role string

const (
	RoleInspector  Role = "inspector"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// IsValid returns true if the role is a recognized value.
func (r Role) IsValid() bool {
	switch r {
	case RoleInspector, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// Permission is a single capability flag.
type Permission string

const (
	PermSubmit           Permission = "submit"
	PermSupervisorReview Permission = "supervisor_review"
	PermAdminReview      Permission = "admin_review"
	PermViewAll          Permission = "view_all"
	PermViewAudit        Permission = "view_audit"
	PermExport           Permission = "export"
	PermDelete           Permission = "delete"
)

// DefaultPermissions returns the permission set a role carries when no
// explicit set is configured for the user.
func DefaultPermissions(role Role) []Permission {
	switch role {
	case RoleInspector:
		return []Permission{PermSubmit, PermExport}
	case RoleSupervisor:
		return []Permission{PermSubmit, PermSupervisorReview, PermViewAll, PermViewAudit, PermExport}
	case RoleAdmin:
		return []Permission{PermSubmit, PermAdminReview, PermViewAll, PermViewAudit, PermExport, PermDelete}
	default:
		return nil
	}
}

// User is an already-authenticated actor. The core never authenticates;
// every operation takes the acting user explicitly.
type User struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Email string `json:"email,omitempty"`

	// Permissions overrides the role defaults when non-nil.
	Permissions []Permission `json:"permissions,omitempty"`
}

// Can reports whether the user holds the permission.
func (u User) Can(p Permission) bool {
	perms := u.Permissions
	if perms == nil {
		perms = DefaultPermissions(u.Role)
	}
	return slices.Contains(perms, p)
}

// CanView reports whether the user may see the record. Users without
// view_all only see records they inspected.
func (u User) CanView(rec *Inspection) bool {
	return u.Can(PermViewAll) || rec.InspectedBy == u.Name
}

// Validate checks that the identity is usable. It returns EUNAUTHORIZED
// when the name is empty or the role unknown.
func (u User) Validate() error {
	if u.Name == "" {
		return Unauthorized("Acting user is required")
	}
	if !u.Role.IsValid() {
		return Unauthorized("Unknown role %q", u.Role)
	}
	return nil
}
