package suppression

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ignite/sequencer/internal/domain"
)

// RowError reports one rejected import row.
type RowError struct {
	Line  int    `json:"line"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

// ImportReport summarizes a CSV import batch.
type ImportReport struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// ImportCSV reads rows of email[,reason[,source[,notes]]] and applies the
// idempotent Add semantics per row. Malformed rows are reported as
// per-row errors, never fatal to the batch. One csv_import journal entry
// is appended per batch (not per row) to avoid flooding the journal.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, actor string) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	report := &ImportReport{}
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Error: err.Error()})
			continue
		}
		if len(record) == 0 {
			continue
		}

		email := domain.NormalizeEmail(record[0])
		if line == 1 && email == "email" {
			continue // header row
		}
		if email == "" {
			continue
		}
		if err := domain.ValidateEmail(email); err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Email: record[0], Error: err.Error()})
			continue
		}

		entry := &domain.Suppression{
			Email:   email,
			Reason:  domain.ReasonImportCSV,
			Source:  domain.SourceImport,
			AddedAt: time.Now().UTC(),
		}
		if len(record) > 1 && strings.TrimSpace(record[1]) != "" {
			entry.Reason = domain.SuppressionReason(strings.TrimSpace(record[1]))
		}
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			entry.Source = domain.SuppressionSource(strings.TrimSpace(record[2]))
		}
		if len(record) > 3 {
			entry.Notes = strings.TrimSpace(record[3])
		}

		if _, err := s.repo.Upsert(ctx, entry); err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Email: email, Error: err.Error()})
			continue
		}
		report.Imported++
	}

	details := fmt.Sprintf("imported=%d rejected=%d", report.Imported, len(report.Errors))
	if err := s.journal.Record(ctx, domain.ActionCSVImport, "", details, actor); err != nil {
		return nil, err
	}
	return report, nil
}

// ExportCSV writes the full suppression set as CSV (email, reason,
// source, notes, added_at) and appends one csv_export journal entry.
// Returns the number of rows written.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, actor string) (int, error) {
	entries, err := s.repo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("export suppressions: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"email", "reason", "source", "notes", "added_at"}); err != nil {
		return 0, err
	}
	for _, e := range entries {
		row := []string{e.Email, string(e.Reason), string(e.Source), e.Notes, e.AddedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}

	details := fmt.Sprintf("exported=%d", len(entries))
	if err := s.journal.Record(ctx, domain.ActionCSVExport, "", details, actor); err != nil {
		return 0, err
	}
	return len(entries), nil
}
