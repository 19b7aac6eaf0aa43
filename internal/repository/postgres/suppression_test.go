package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/sequencer/internal/domain"
	"github.com/ignite/sequencer/internal/service/suppression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuppressionRepo_UpsertReportsCreated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepo(db)
	entry := &domain.Suppression{
		Email:   "jane@x.com",
		Reason:  domain.ReasonManual,
		Source:  domain.SourceManual,
		AddedAt: time.Now().UTC(),
	}

	mock.ExpectQuery(`INSERT INTO sequencer_suppressions`).
		WithArgs(entry.Email, entry.Reason, entry.Source, entry.Notes, entry.AddedAt).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := repo.Upsert(context.Background(), entry)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepo_RemoveUnknownEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepo(db)

	mock.ExpectExec(`DELETE FROM sequencer_suppressions`).
		WithArgs("ghost@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Remove(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, suppression.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepo_IsSuppressed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepo(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("blocked@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	got, err := repo.IsSuppressed(context.Background(), "blocked@x.com")
	require.NoError(t, err)
	assert.True(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSuppressionRepo_ListAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSuppressionRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sequencer_suppressions`).
		WithArgs("%x.com%", string(domain.ReasonHardBounce)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT email, reason, source, notes, added_at FROM sequencer_suppressions`).
		WithArgs("%x.com%", string(domain.ReasonHardBounce), 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"email", "reason", "source", "notes", "added_at"}).
			AddRow("jane@x.com", "hard_bounce", "bounce_handler", "", now))

	got, total, err := repo.List(context.Background(), suppression.ListFilter{
		Search: "x.com",
		Reason: string(domain.ReasonHardBounce),
		Limit:  50,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "jane@x.com", got[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
