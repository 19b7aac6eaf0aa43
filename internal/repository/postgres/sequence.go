package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/service/sequence"
)

// SequenceRepo implements sequence.Repository against PostgreSQL.
type SequenceRepo struct{ db *sql.DB }

// NewSequenceRepo creates a Postgres-backed sequence repository.
func NewSequenceRepo(db *sql.DB) *SequenceRepo { return &SequenceRepo{db: db} }

func (r *SequenceRepo) CreateSequence(ctx context.Context, s *domain.Sequence) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sequencer_sequences (id, mode, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, s.ID, s.Mode, s.Status, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create sequence: %w", err)
	}
	return nil
}

func (r *SequenceRepo) GetSequence(ctx context.Context, id string) (*domain.Sequence, error) {
	var s domain.Sequence
	err := r.db.QueryRowContext(ctx, `
		SELECT q.id, q.mode, q.status, q.created_at, COUNT(e.email)
		FROM sequencer_sequences q
		LEFT JOIN sequencer_enrollments e ON e.sequence_id = q.id
		WHERE q.id = $1
		GROUP BY q.id, q.mode, q.status, q.created_at
	`, id).Scan(&s.ID, &s.Mode, &s.Status, &s.CreatedAt, &s.EnrolledCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sequence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &s, nil
}

func (r *SequenceRepo) ListSequences(ctx context.Context) ([]domain.Sequence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, q.mode, q.status, q.created_at, COUNT(e.email)
		FROM sequencer_sequences q
		LEFT JOIN sequencer_enrollments e ON e.sequence_id = q.id
		GROUP BY q.id, q.mode, q.status, q.created_at
		ORDER BY q.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var out []domain.Sequence
	for rows.Next() {
		var s domain.Sequence
		if err := rows.Scan(&s.ID, &s.Mode, &s.Status, &s.CreatedAt, &s.EnrolledCount); err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SequenceRepo) MarkStopped(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sequencer_sequences SET status = 'stopped' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark stopped: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sequence.ErrNotFound
	}
	return nil
}

// CreateEnrollment writes the enrollment row and all of its step states in
// one transaction so a crash can't leave an enrollment without steps.
func (r *SequenceRepo) CreateEnrollment(ctx context.Context, e *domain.Enrollment, steps []domain.StepState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sequencer_enrollments (sequence_id, email, first_name, enrolled_at)
		VALUES ($1, $2, $3, $4)
	`, e.SequenceID, e.Email, e.FirstName, e.EnrolledAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}

	for _, st := range steps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sequencer_step_states (sequence_id, email, step, status, due_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, st.SequenceID, st.Email, st.Step, st.Status, st.DueAt, st.UpdatedAt); err != nil {
			return fmt.Errorf("insert step state: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SequenceRepo) CancelOpenSteps(ctx context.Context, sequenceID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sequencer_step_states
		SET status = 'cancelled', updated_at = NOW()
		WHERE sequence_id = $1 AND status IN ('pending', 'scheduled')
	`, sequenceID)
	if err != nil {
		return 0, fmt.Errorf("cancel open steps: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SequenceRepo) ListEnrollments(ctx context.Context, sequenceID string) ([]domain.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence_id, email, first_name, enrolled_at
		FROM sequencer_enrollments
		WHERE sequence_id = $1
		ORDER BY email
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []domain.Enrollment
	for rows.Next() {
		var e domain.Enrollment
		if err := rows.Scan(&e.SequenceID, &e.Email, &e.FirstName, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SequenceRepo) ListStepStates(ctx context.Context, sequenceID string) ([]domain.StepState, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence_id, email, step, status, due_at, COALESCE(message_id, ''), COALESCE(last_error, ''), updated_at
		FROM sequencer_step_states
		WHERE sequence_id = $1
		ORDER BY email, step
	`, sequenceID)
	if err != nil {
		return nil, fmt.Errorf("list step states: %w", err)
	}
	defer rows.Close()

	var out []domain.StepState
	for rows.Next() {
		var st domain.StepState
		if err := rows.Scan(&st.SequenceID, &st.Email, &st.Step, &st.Status, &st.DueAt, &st.MessageID, &st.LastError, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ClaimDueSteps is the dispatcher's atomic claim. FOR UPDATE SKIP LOCKED
// makes concurrent passes partition the due set instead of double-claiming;
// the sending/locked_at branch reclaims rows a crashed pass left behind.
// A step is only due once every earlier step for the same enrollment has
// reached a terminal state.
func (r *SequenceRepo) ClaimDueSteps(ctx context.Context, workerID string, now time.Time, limit int) ([]sequence.ClaimedStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH due AS (
			SELECT s.sequence_id, s.email, s.step
			FROM sequencer_step_states s
			JOIN sequencer_sequences q ON q.id = s.sequence_id
			WHERE q.status = 'active'
			  AND s.due_at <= $2
			  AND (s.status = 'scheduled'
			       OR (s.status = 'sending' AND s.locked_at < $2 - INTERVAL '5 minutes'))
			  AND NOT EXISTS (
			      SELECT 1 FROM sequencer_step_states p
			      WHERE p.sequence_id = s.sequence_id
			        AND p.email = s.email
			        AND p.step < s.step
			        AND p.status IN ('pending', 'scheduled', 'sending')
			  )
			ORDER BY s.due_at
			LIMIT $3
			FOR UPDATE OF s SKIP LOCKED
		)
		UPDATE sequencer_step_states ss
		SET status = 'sending', locked_by = $1, locked_at = NOW(), updated_at = NOW()
		FROM due
		JOIN sequencer_enrollments e
		  ON e.sequence_id = due.sequence_id AND e.email = due.email
		WHERE ss.sequence_id = due.sequence_id
		  AND ss.email = due.email
		  AND ss.step = due.step
		RETURNING ss.sequence_id, ss.email, ss.step, ss.due_at, e.first_name
	`, workerID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due steps: %w", err)
	}
	defer rows.Close()

	var out []sequence.ClaimedStep
	for rows.Next() {
		var c sequence.ClaimedStep
		if err := rows.Scan(&c.SequenceID, &c.Email, &c.Step, &c.DueAt, &c.FirstName); err != nil {
			return nil, fmt.Errorf("scan claimed step: %w", err)
		}
		c.Status = domain.StepSending
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompleteStep only matches rows still in sending state, so a step that
// already reached a terminal status never regresses.
func (r *SequenceRepo) CompleteStep(ctx context.Context, sequenceID, email string, step int, status domain.StepStatus, messageID, lastError string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sequencer_step_states
		SET status = $4, message_id = NULLIF($5, ''), last_error = NULLIF($6, ''),
		    locked_by = NULL, locked_at = NULL, updated_at = NOW()
		WHERE sequence_id = $1 AND email = $2 AND step = $3 AND status = 'sending'
	`, sequenceID, email, step, status, messageID, lastError)
	if err != nil {
		return fmt.Errorf("complete step: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("complete step: no claimed row for %s step %d", email, step)
	}
	return nil
}

func (r *SequenceRepo) ReleaseStep(ctx context.Context, sequenceID, email string, step int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sequencer_step_states
		SET status = 'scheduled', locked_by = NULL, locked_at = NULL, updated_at = NOW()
		WHERE sequence_id = $1 AND email = $2 AND step = $3 AND status = 'sending'
	`, sequenceID, email, step)
	if err != nil {
		return fmt.Errorf("release step: %w", err)
	}
	return nil
}
