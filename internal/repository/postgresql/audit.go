package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.Sink {
	return &auditRepository{db: db}
}

// RecordEvent implements audit.Sink.
func (r *auditRepository) RecordEvent(ctx context.Context, event audit.Event) error {
	q := GetQuerier(ctx, r.db)

	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate audit id: %w", err)
		}
		event.ID = id.String()
	}
	before, err := marshalNullable(event.Before)
	if err != nil {
		return fmt.Errorf("encode before: %w", err)
	}
	after, err := marshalNullable(event.After)
	if err != nil {
		return fmt.Errorf("encode after: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, before_state, after_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	`, event.ID, event.UserID, event.Action, event.EntityType, event.EntityID, before, after, nullableTime(event))
	if err != nil {
		return wrapErr("failed to record audit event", err)
	}
	return nil
}

func marshalNullable(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullableTime(event audit.Event) interface{} {
	if event.CreatedAt.IsZero() {
		return nil
	}
	return event.CreatedAt.UTC()
}
