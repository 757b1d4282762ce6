package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
)

// Service resolves users from the local projection and answers capability and
// department questions for the engine.
type Service struct {
	users       user.UserRepository
	departments department.DepartmentRepository
}

var (
	_ user.Identity        = (*Service)(nil)
	_ department.Directory = (*Service)(nil)
)

func NewService(users user.UserRepository, departments department.DepartmentRepository) *Service {
	return &Service{users: users, departments: departments}
}

// CurrentUser implements user.Identity. The acting user is the user_id claim
// of the verified token; role and status always come from the store.
func (s *Service) CurrentUser(ctx context.Context) (*user.User, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil || claims == nil {
		return nil, user.ErrUnauthenticated
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, user.ErrUnauthenticated
	}
	return s.GetUser(ctx, userID)
}

// GetUser implements user.Identity.
func (s *Service) GetUser(ctx context.Context, id string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, user.ErrUserInactive
	}
	return &u, nil
}

// HasCapability implements user.Identity.
func (s *Service) HasCapability(ctx context.Context, u *user.User, resource user.Resource, action user.Action) bool {
	if u == nil || !u.IsActive {
		return false
	}
	return user.RoleHasCapability(u.Role, resource, action)
}

// ManagerDepartments implements department.Directory.
func (s *Service) ManagerDepartments(ctx context.Context, userID string) ([]string, error) {
	assigned, err := s.departments.ListAssignedToManager(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing assigned departments: %w", err)
	}
	ids := make([]string, 0, len(assigned))
	for _, d := range assigned {
		if d.IsActive {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

// IsDepartmentActive implements department.Directory. Unknown departments are inactive.
func (s *Service) IsDepartmentActive(ctx context.Context, id string) (bool, error) {
	d, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, department.ErrDepartmentNotFound) {
			return false, nil
		}
		return false, err
	}
	return d.IsActive, nil
}

// ListActive implements department.Directory.
func (s *Service) ListActive(ctx context.Context) ([]department.Department, error) {
	return s.departments.ListActive(ctx)
}

// ManagersOf implements department.Directory.
func (s *Service) ManagersOf(ctx context.Context, departmentIDs []string) ([]string, error) {
	return s.departments.ListManagerIDs(ctx, departmentIDs)
}
