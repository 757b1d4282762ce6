package department

import "context"

// Directory answers department-scoped authority questions.
type Directory interface {
	// ManagerDepartments returns the ids of active departments assigned to userID.
	ManagerDepartments(ctx context.Context, userID string) ([]string, error)
	IsDepartmentActive(ctx context.Context, id string) (bool, error)
	ListActive(ctx context.Context) ([]Department, error)
	// ManagersOf returns the managers that oversee any of departmentIDs.
	ManagersOf(ctx context.Context, departmentIDs []string) ([]string, error)
}
