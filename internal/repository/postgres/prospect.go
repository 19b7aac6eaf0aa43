package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/sequencer/internal/domain"
)

// ProspectDirectory implements the sequence engine's read-only view of
// the prospect store. Nothing in this type writes to the table.
type ProspectDirectory struct{ db *sql.DB }

// NewProspectDirectory creates a Postgres-backed prospect directory.
func NewProspectDirectory(db *sql.DB) *ProspectDirectory { return &ProspectDirectory{db: db} }

func (d *ProspectDirectory) ListEligible(ctx context.Context) ([]domain.Prospect, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT email, COALESCE(first_name, ''), status
		FROM prospects
		WHERE status = 'new'
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list eligible prospects: %w", err)
	}
	defer rows.Close()

	var out []domain.Prospect
	for rows.Next() {
		var p domain.Prospect
		if err := rows.Scan(&p.Email, &p.FirstName, &p.Status); err != nil {
			return nil, fmt.Errorf("scan prospect: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *ProspectDirectory) Find(ctx context.Context, email string) (*domain.Prospect, error) {
	var p domain.Prospect
	err := d.db.QueryRowContext(ctx, `
		SELECT email, COALESCE(first_name, ''), status
		FROM prospects
		WHERE email = $1
	`, email).Scan(&p.Email, &p.FirstName, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find prospect: %w", err)
	}
	return &p, nil
}
