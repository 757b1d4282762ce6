package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

type auditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) audit.Sink {
	return &auditRepository{db: db}
}

// RecordEvent implements audit.Sink.
func (r *auditRepository) RecordEvent(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate audit id: %w", err)
		}
		event.ID = id.String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	before, err := marshalNullable(event.Before)
	if err != nil {
		return fmt.Errorf("encode before: %w", err)
	}
	after, err := marshalNullable(event.After)
	if err != nil {
		return fmt.Errorf("encode after: %w", err)
	}

	_, err = querier(ctx, r.db).ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, before_state, after_state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.UserID, event.Action, event.EntityType, event.EntityID, before, after, formatTime(event.CreatedAt))
	if err != nil {
		return wrapErr("recording audit event", err)
	}
	return nil
}

// ListByEntity returns the events recorded for one entity, oldest first.
func ListByEntity(ctx context.Context, db *DB, entityType, entityID string) ([]audit.Event, error) {
	rows, err := querier(ctx, db).QueryContext(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, before_state, after_state, created_at
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at, id
	`, entityType, entityID)
	if err != nil {
		return nil, wrapErr("listing audit events", err)
	}
	defer rows.Close()

	events := []audit.Event{}
	for rows.Next() {
		var (
			e             audit.Event
			before, after *string
			createdAt     string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &before, &after, &createdAt); err != nil {
			return nil, wrapErr("scanning audit event", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if before != nil {
			e.Before = json.RawMessage(*before)
		}
		if after != nil {
			e.After = json.RawMessage(*after)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func marshalNullable(v interface{}) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
