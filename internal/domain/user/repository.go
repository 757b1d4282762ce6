package user

import (
	"context"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	// ListByDepartments returns active users of the given departments. An empty slice means all departments.
	ListByDepartments(ctx context.Context, departmentIDs []string) ([]User, error)
}
