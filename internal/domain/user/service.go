package user

import (
	"context"
	"fmt"
)

// Identity resolves the acting user and answers capability questions.
// The engine depends only on this interface, never on how roles or grants are stored.
type Identity interface {
	// CurrentUser returns the authenticated user carried by ctx.
	CurrentUser(ctx context.Context) (*User, error)
	// GetUser loads an active user by id. Inactive users yield ErrUserInactive.
	GetUser(ctx context.Context, id string) (*User, error)
	// HasCapability reports whether u may perform action on resource.
	HasCapability(ctx context.Context, u *User, resource Resource, action Action) bool
}

// Authorize loads userID and requires the capability, returning
// ErrInsufficientCapability when it is missing.
func Authorize(ctx context.Context, id Identity, userID string, resource Resource, action Action) (*User, error) {
	u, err := id.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !id.HasCapability(ctx, u, resource, action) {
		return nil, fmt.Errorf("%s.%s: %w", resource, action, ErrInsufficientCapability)
	}
	return u, nil
}
