package postgresql

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type departmentRepository struct {
	db *database.DB
}

func NewDepartmentRepository(db *database.DB) department.DepartmentRepository {
	return &departmentRepository{db: db}
}

// GetByID implements department.DepartmentRepository.
func (r *departmentRepository) GetByID(ctx context.Context, id string) (department.Department, error) {
	if _, err := uuid.Parse(id); err != nil {
		return department.Department{}, department.ErrDepartmentNotFound
	}
	q := GetQuerier(ctx, r.db)

	var d department.Department
	err := q.QueryRow(ctx, `SELECT id, name, is_active FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return department.Department{}, department.ErrDepartmentNotFound
		}
		return department.Department{}, wrapErr("failed to get department", err)
	}
	return d, nil
}

// ListActive implements department.DepartmentRepository.
func (r *departmentRepository) ListActive(ctx context.Context) ([]department.Department, error) {
	return r.list(ctx, `
		SELECT id, name, is_active
		FROM departments
		WHERE is_active = TRUE
		ORDER BY name, id
	`)
}

// ListAssignedToManager implements department.DepartmentRepository.
func (r *departmentRepository) ListAssignedToManager(ctx context.Context, managerID string) ([]department.Department, error) {
	if _, err := uuid.Parse(managerID); err != nil {
		return []department.Department{}, nil
	}
	return r.list(ctx, `
		SELECT d.id, d.name, d.is_active
		FROM departments d
		JOIN manager_assignments ma ON ma.department_id = d.id
		WHERE ma.manager_id = $1
		ORDER BY d.name, d.id
	`, managerID)
}

// ListManagerIDs implements department.DepartmentRepository.
func (r *departmentRepository) ListManagerIDs(ctx context.Context, departmentIDs []string) ([]string, error) {
	if len(departmentIDs) == 0 {
		return []string{}, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT ma.manager_id::text
		FROM manager_assignments ma
		JOIN users u ON u.id = ma.manager_id
		WHERE ma.department_id::text = ANY($1::text[])
		  AND u.is_active = TRUE
		ORDER BY 1
	`, departmentIDs)
	if err != nil {
		return nil, wrapErr("failed to list department managers", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("failed to scan manager id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *departmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]department.Department, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to list departments", err)
	}
	defer rows.Close()

	departments := []department.Department{}
	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive); err != nil {
			return nil, wrapErr("failed to scan department", err)
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}
