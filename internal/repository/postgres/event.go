package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/sequencer/internal/domain"
)

// EventRepo implements events.Repository against PostgreSQL.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequencer_events (id, sequence_id, email, step, type, message_id, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`, e.ID, e.SequenceID, e.Email, e.Step, e.Type, e.MessageID, e.Details, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (r *EventRepo) ListBySequence(ctx context.Context, sequenceID string) ([]domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sequence_id, email, step, type, COALESCE(message_id, ''), details, occurred_at
		FROM sequencer_events
		WHERE sequence_id = $1
		ORDER BY occurred_at
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.SequenceID, &e.Email, &e.Step, &e.Type, &e.MessageID, &e.Details, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
