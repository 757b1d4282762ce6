package user

import "errors"

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUserInactive           = errors.New("user is inactive")
	ErrUnauthenticated        = errors.New("no authenticated user in context")
	ErrInsufficientCapability = errors.New("insufficient capability")
)
