package domain

import "time"

// JournalAction enumerates the compliance-relevant actions recorded in the
// journal.
type JournalAction string

const (
	ActionAddSuppression    JournalAction = "add_suppression"
	ActionRemoveSuppression JournalAction = "remove_suppression"
	ActionCSVImport         JournalAction = "csv_import"
	ActionCSVExport         JournalAction = "csv_export"
	ActionSkipSend          JournalAction = "skip_send"
)

// JournalEntry is one immutable row in the compliance audit log. Entries
// are only ever appended; a mistake is corrected by appending another
// entry, never by editing this one.
type JournalEntry struct {
	ID        string        `json:"id" db:"id"`
	Timestamp time.Time     `json:"timestamp" db:"timestamp"`
	Action    JournalAction `json:"action" db:"action"`
	Email     string        `json:"email,omitempty" db:"email"` // empty for bulk actions
	Details   string        `json:"details,omitempty" db:"details"`
	Actor     string        `json:"actor" db:"actor"`
}
