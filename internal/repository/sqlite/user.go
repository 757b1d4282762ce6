package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) user.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u    user.User
		role string
	)
	if err := row.Scan(&u.ID, &u.DepartmentID, &role, &u.IsActive); err != nil {
		return user.User{}, err
	}
	u.Role = user.Role(role)
	return u, nil
}

// GetByID implements user.UserRepository.
func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	row := querier(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, department_id, role, is_active
		FROM users
		WHERE id = ?
	`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, wrapErr("getting user", err)
	}
	return u, nil
}

// ListByDepartments implements user.UserRepository.
func (r *userRepository) ListByDepartments(ctx context.Context, departmentIDs []string) ([]user.User, error) {
	query := `SELECT id, department_id, role, is_active FROM users WHERE is_active = 1`
	var args []any
	if len(departmentIDs) > 0 {
		query += " AND department_id IN (" + placeholders(len(departmentIDs)) + ")"
		args = stringArgs(departmentIDs)
	}
	query += " ORDER BY id"

	rows, err := querier(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("listing users", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrapErr("scanning user", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
