package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/department"
)

type departmentRepository struct {
	db *DB
}

func NewDepartmentRepository(db *DB) department.DepartmentRepository {
	return &departmentRepository{db: db}
}

// GetByID implements department.DepartmentRepository.
func (r *departmentRepository) GetByID(ctx context.Context, id string) (department.Department, error) {
	var d department.Department
	err := querier(ctx, r.db).QueryRowContext(ctx, `SELECT id, name, is_active FROM departments WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return department.Department{}, department.ErrDepartmentNotFound
		}
		return department.Department{}, wrapErr("getting department", err)
	}
	return d, nil
}

// ListActive implements department.DepartmentRepository.
func (r *departmentRepository) ListActive(ctx context.Context) ([]department.Department, error) {
	return r.list(ctx, `
		SELECT id, name, is_active
		FROM departments
		WHERE is_active = 1
		ORDER BY name, id
	`)
}

// ListAssignedToManager implements department.DepartmentRepository.
func (r *departmentRepository) ListAssignedToManager(ctx context.Context, managerID string) ([]department.Department, error) {
	return r.list(ctx, `
		SELECT d.id, d.name, d.is_active
		FROM departments d
		JOIN manager_assignments ma ON ma.department_id = d.id
		WHERE ma.manager_id = ?
		ORDER BY d.name, d.id
	`, managerID)
}

// ListManagerIDs implements department.DepartmentRepository.
func (r *departmentRepository) ListManagerIDs(ctx context.Context, departmentIDs []string) ([]string, error) {
	if len(departmentIDs) == 0 {
		return []string{}, nil
	}

	rows, err := querier(ctx, r.db).QueryContext(ctx, `
		SELECT DISTINCT ma.manager_id
		FROM manager_assignments ma
		JOIN users u ON u.id = ma.manager_id
		WHERE ma.department_id IN (`+placeholders(len(departmentIDs))+`)
		  AND u.is_active = 1
		ORDER BY 1
	`, stringArgs(departmentIDs)...)
	if err != nil {
		return nil, wrapErr("listing department managers", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scanning manager id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *departmentRepository) list(ctx context.Context, query string, args ...any) ([]department.Department, error) {
	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("listing departments", err)
	}
	defer rows.Close()

	departments := []department.Department{}
	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.IsActive); err != nil {
			return nil, wrapErr("scanning department", err)
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}
