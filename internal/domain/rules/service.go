package rules

import "context"

type SettingsService interface {
	// Snapshot returns the current settings. The result is shared and must not be mutated.
	Snapshot(ctx context.Context) (*Settings, error)

	// Update validates and stores new settings on behalf of actorID, then refreshes the cache.
	Update(ctx context.Context, actorID string, req UpdateSettingsRequest) (*Settings, error)

	// Invalidate drops the cached snapshot so the next read reloads it.
	Invalidate()
}
