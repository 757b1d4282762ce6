package postgresql

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type userRepositoryImpl struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) user.UserRepository {
	return &userRepositoryImpl{db: db}
}

// GetByID implements user.UserRepository.
func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrUserNotFound
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, department_id, role, is_active
		FROM users
		WHERE id = $1
	`

	var (
		u    user.User
		role string
	)
	err := q.QueryRow(ctx, query, id).Scan(&u.ID, &u.DepartmentID, &role, &u.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrUserNotFound
		}
		return user.User{}, wrapErr("failed to get user", err)
	}
	u.Role = user.Role(role)
	return u, nil
}

// ListByDepartments implements user.UserRepository.
func (r *userRepositoryImpl) ListByDepartments(ctx context.Context, departmentIDs []string) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, department_id, role, is_active
		FROM users
		WHERE is_active = TRUE
	`
	var args []interface{}
	if len(departmentIDs) > 0 {
		query += " AND department_id::text = ANY($1::text[])"
		args = append(args, departmentIDs)
	}
	query += " ORDER BY id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("failed to list users", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		var (
			u    user.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.DepartmentID, &role, &u.IsActive); err != nil {
			return nil, wrapErr("failed to scan user", err)
		}
		u.Role = user.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}
