package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/service/journal"
)

// JournalRepo implements journal.Repository against PostgreSQL. The table
// carries no UPDATE or DELETE path anywhere in this package.
type JournalRepo struct{ db *sql.DB }

// NewJournalRepo creates a Postgres-backed journal repository.
func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{db: db} }

func (r *JournalRepo) Append(ctx context.Context, e *domain.JournalEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequencer_journal (id, ts, action, email, details, actor)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Timestamp, e.Action, e.Email, e.Details, e.Actor)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

func (r *JournalRepo) List(ctx context.Context, f journal.ListFilter) ([]domain.JournalEntry, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Action != "" {
		where += " AND action = " + arg(f.Action)
	}
	if f.Email != "" {
		where += " AND email = " + arg(f.Email)
	}
	if !f.From.IsZero() {
		where += " AND ts >= " + arg(f.From)
	}
	if !f.To.IsZero() {
		where += " AND ts <= " + arg(f.To)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sequencer_journal "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count journal entries: %w", err)
	}

	query := "SELECT id, ts, action, email, details, actor FROM sequencer_journal " +
		where + " ORDER BY ts DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []domain.JournalEntry
	for rows.Next() {
		var e domain.JournalEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Email, &e.Details, &e.Actor); err != nil {
			return nil, 0, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
