package department

import "context"

type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (Department, error)
	ListActive(ctx context.Context) ([]Department, error)
	// ListAssignedToManager returns the departments, active or not, assigned to managerID.
	ListAssignedToManager(ctx context.Context, managerID string) ([]Department, error)
	// ListManagerIDs returns the managers assigned to any of departmentIDs.
	ListManagerIDs(ctx context.Context, departmentIDs []string) ([]string, error)
}
