package rules

import "context"

type SettingsRepository interface {
	// Get returns the stored settings or ErrSettingsNotFound.
	Get(ctx context.Context) (Settings, error)
	// Save writes s as version expectedVersion+1 if the stored version is still
	// expectedVersion (0 when nothing is stored). Otherwise it returns ErrVersionConflict.
	Save(ctx context.Context, s Settings, expectedVersion int64) (Settings, error)
}
