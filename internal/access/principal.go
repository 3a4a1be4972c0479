package access

// Status is the employment state of a principal's account.
type Status string

const (
	StatusActive     Status = "Active"
	StatusInactive   Status = "Inactive"
	StatusTerminated Status = "Terminated"
	StatusOnLeave    Status = "OnLeave"
)

// ParseStatus maps a stored status. Unknown values are treated as inactive.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusActive, StatusInactive, StatusTerminated, StatusOnLeave:
		return Status(raw)
	default:
		return StatusInactive
	}
}

// Role labels with a place in the landing-page ranking.
const (
	RoleSuperAdmin = "Super Admin"
	RoleHRManager  = "HR Manager"
	RoleManager    = "Manager"
	RoleEmployee   = "Employee"
)

// Role names the principal's role.
type Role struct {
	Name string `json:"name" yaml:"name"`
}

// Principal is the authenticated actor. It is supplied by the session layer and
// never mutated here.
type Principal struct {
	ID          int64
	Role        Role
	Status      Status
	Permissions PermissionSet
}

// IsActive reports whether the principal may pass any authorization check.
func (p *Principal) IsActive() bool {
	return p != nil && p.Status == StatusActive
}

// HasRole reports whether the principal's role label is one of roles.
func (p *Principal) HasRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if r == p.Role.Name {
			return true
		}
	}
	return false
}

// Can reports whether the principal's permissions satisfy required.
func (p *Principal) Can(required Permission) bool {
	if p == nil {
		return false
	}
	return SatisfiesPermission(p.Permissions, required)
}
