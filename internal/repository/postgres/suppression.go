package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/service/suppression"
)

// SuppressionRepo implements suppression.Repository against PostgreSQL.
// The table has a primary key on email, so the list can never hold two
// entries for the same address.
type SuppressionRepo struct{ db *sql.DB }

// NewSuppressionRepo creates a Postgres-backed suppression repository.
func NewSuppressionRepo(db *sql.DB) *SuppressionRepo { return &SuppressionRepo{db: db} }

func (r *SuppressionRepo) IsSuppressed(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sequencer_suppressions WHERE email = $1)`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("suppression lookup: %w", err)
	}
	return exists, nil
}

func (r *SuppressionRepo) Upsert(ctx context.Context, s *domain.Suppression) (bool, error) {
	var created bool
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sequencer_suppressions (email, reason, source, notes, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET reason = $2, source = $3, notes = $4
		RETURNING (xmax = 0)
	`, s.Email, s.Reason, s.Source, s.Notes, s.AddedAt).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert suppression: %w", err)
	}
	return created, nil
}

func (r *SuppressionRepo) Remove(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sequencer_suppressions WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("remove suppression: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return suppression.ErrNotFound
	}
	return nil
}

func (r *SuppressionRepo) List(ctx context.Context, f suppression.ListFilter) ([]domain.Suppression, int, error) {
	where := "WHERE 1=1"
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Search != "" {
		where += " AND email LIKE " + arg("%"+f.Search+"%")
	}
	if f.Reason != "" {
		where += " AND reason = " + arg(f.Reason)
	}
	if f.Source != "" {
		where += " AND source = " + arg(f.Source)
	}
	if !f.From.IsZero() {
		where += " AND added_at >= " + arg(f.From)
	}
	if !f.To.IsZero() {
		where += " AND added_at <= " + arg(f.To)
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sequencer_suppressions "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppressions: %w", err)
	}

	query := "SELECT email, reason, source, notes, added_at FROM sequencer_suppressions " +
		where + " ORDER BY added_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(f.Offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	for rows.Next() {
		var s domain.Suppression
		if err := rows.Scan(&s.Email, &s.Reason, &s.Source, &s.Notes, &s.AddedAt); err != nil {
			return nil, 0, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *SuppressionRepo) All(ctx context.Context) ([]domain.Suppression, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, reason, source, notes, added_at FROM sequencer_suppressions ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("all suppressions: %w", err)
	}
	defer rows.Close()

	var out []domain.Suppression
	for rows.Next() {
		var s domain.Suppression
		if err := rows.Scan(&s.Email, &s.Reason, &s.Source, &s.Notes, &s.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
