package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/rules"
)

type settingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) rules.SettingsRepository {
	return &settingsRepository{db: db}
}

// Get implements rules.SettingsRepository.
func (r *settingsRepository) Get(ctx context.Context) (rules.Settings, error) {
	var (
		s                 rules.Settings
		rulesJSON, otJSON string
		updatedAt         string
	)
	err := querier(ctx, r.db).QueryRowContext(ctx, `
		SELECT rules, overtime, timezone, version, updated_at, updated_by
		FROM timeclock_settings
		WHERE id = 1
	`).Scan(&rulesJSON, &otJSON, &s.Timezone, &s.Version, &updatedAt, &s.UpdatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rules.Settings{}, rules.ErrSettingsNotFound
		}
		return rules.Settings{}, wrapErr("getting timeclock settings", err)
	}

	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return rules.Settings{}, err
	}
	if err := json.Unmarshal([]byte(rulesJSON), &s.Rules); err != nil {
		return rules.Settings{}, fmt.Errorf("decode rules: %w", err)
	}
	if err := json.Unmarshal([]byte(otJSON), &s.Overtime); err != nil {
		return rules.Settings{}, fmt.Errorf("decode overtime: %w", err)
	}
	return s, nil
}

// Save implements rules.SettingsRepository.
func (r *settingsRepository) Save(ctx context.Context, s rules.Settings, expectedVersion int64) (rules.Settings, error) {
	rulesJSON, err := json.Marshal(s.Rules)
	if err != nil {
		return rules.Settings{}, fmt.Errorf("encode rules: %w", err)
	}
	otJSON, err := json.Marshal(s.Overtime)
	if err != nil {
		return rules.Settings{}, fmt.Errorf("encode overtime: %w", err)
	}

	var res sql.Result
	if expectedVersion == 0 {
		res, err = querier(ctx, r.db).ExecContext(ctx, `
			INSERT INTO timeclock_settings (id, rules, overtime, timezone, version, updated_at, updated_by)
			VALUES (1, ?, ?, ?, 1, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, string(rulesJSON), string(otJSON), s.Timezone, formatTime(s.UpdatedAt), s.UpdatedBy)
	} else {
		res, err = querier(ctx, r.db).ExecContext(ctx, `
			UPDATE timeclock_settings
			SET rules = ?, overtime = ?, timezone = ?, version = version + 1,
				updated_at = ?, updated_by = ?
			WHERE id = 1
			  AND version = ?
		`, string(rulesJSON), string(otJSON), s.Timezone, formatTime(s.UpdatedAt), s.UpdatedBy, expectedVersion)
	}
	if err := guarded(res, err, "saving timeclock settings", rules.ErrVersionConflict); err != nil {
		return rules.Settings{}, err
	}

	s.Version = expectedVersion + 1
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
