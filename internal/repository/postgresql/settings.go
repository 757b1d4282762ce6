package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) rules.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get implements rules.SettingsRepository.
func (r *settingsRepository) Get(ctx context.Context) (rules.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT rules, overtime, timezone, version, updated_at, updated_by::text
		FROM timeclock_settings
		WHERE id = 1
	`

	var (
		s                 rules.Settings
		rulesJSON, otJSON []byte
	)
	err := q.QueryRow(ctx, query).Scan(&rulesJSON, &otJSON, &s.Timezone, &s.Version, &s.UpdatedAt, &s.UpdatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rules.Settings{}, rules.ErrSettingsNotFound
		}
		return rules.Settings{}, wrapErr("failed to get timeclock settings", err)
	}

	if err := json.Unmarshal(rulesJSON, &s.Rules); err != nil {
		return rules.Settings{}, fmt.Errorf("decode rules: %w", err)
	}
	if err := json.Unmarshal(otJSON, &s.Overtime); err != nil {
		return rules.Settings{}, fmt.Errorf("decode overtime: %w", err)
	}
	return s, nil
}

// Save implements rules.SettingsRepository.
func (r *settingsRepository) Save(ctx context.Context, s rules.Settings, expectedVersion int64) (rules.Settings, error) {
	q := GetQuerier(ctx, r.db)

	rulesJSON, err := json.Marshal(s.Rules)
	if err != nil {
		return rules.Settings{}, fmt.Errorf("encode rules: %w", err)
	}
	otJSON, err := json.Marshal(s.Overtime)
	if err != nil {
		return rules.Settings{}, fmt.Errorf("encode overtime: %w", err)
	}

	// The conflict branch only fires when the stored version is still the expected one.
	query := `
		INSERT INTO timeclock_settings (id, rules, overtime, timezone, version, updated_at, updated_by)
		SELECT 1, $1::jsonb, $2::jsonb, $3::text, $4::bigint + 1, $5::timestamptz, $6::uuid
		WHERE $4::bigint = 0
		ON CONFLICT (id) DO UPDATE
		SET rules = EXCLUDED.rules,
			overtime = EXCLUDED.overtime,
			timezone = EXCLUDED.timezone,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
		WHERE timeclock_settings.version = $4::bigint
		RETURNING version, updated_at
	`
	if expectedVersion > 0 {
		query = `
			UPDATE timeclock_settings
			SET rules = $1, overtime = $2, timezone = $3, version = $4 + 1,
				updated_at = $5, updated_by = $6
			WHERE id = 1
			  AND version = $4
			RETURNING version, updated_at
		`
	}

	err = q.QueryRow(ctx, query, rulesJSON, otJSON, s.Timezone, expectedVersion, s.UpdatedAt.UTC(), s.UpdatedBy).
		Scan(&s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rules.Settings{}, rules.ErrVersionConflict
		}
		return rules.Settings{}, wrapErr("failed to save timeclock settings", err)
	}
	return s, nil
}
