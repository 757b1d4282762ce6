package user

type Role string

const (
	RoleOwner    Role = "owner"    // Tenant owner - full access
	RoleManager  Role = "manager"  // Approves entries for assigned departments
	RoleEmployee Role = "employee" // Clocks in and out
)

// User is the identity the engine acts on behalf of.
type User struct {
	ID           string
	DepartmentID *string
	Role         Role
	IsActive     bool
}

// IsManager checks if user is manager or owner
func (u *User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleOwner
}

// InDepartment reports whether the user belongs to departmentID.
func (u *User) InDepartment(departmentID string) bool {
	return u.DepartmentID != nil && *u.DepartmentID == departmentID
}

// ParseRole maps a claim value to a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleManager, RoleEmployee:
		return Role(s), true
	}
	return "", false
}
