package domain

import "time"

// SuppressionReason enumerates why an email was suppressed.
type SuppressionReason string

const (
	ReasonUnsubscribe SuppressionReason = "unsubscribe"
	ReasonHardBounce  SuppressionReason = "hard_bounce"
	ReasonComplaint   SuppressionReason = "complaint"
	ReasonManual      SuppressionReason = "manual"
	ReasonImportCSV   SuppressionReason = "import_csv"
)

// SuppressionSource indicates where the suppression signal originated.
type SuppressionSource string

const (
	SourceFooterLink       SuppressionSource = "footer_link"
	SourceBounceHandler    SuppressionSource = "bounce_handler"
	SourceComplaintHandler SuppressionSource = "complaint_handler"
	SourceManual           SuppressionSource = "manual"
	SourceImport           SuppressionSource = "import"
)

// Suppression is a single entry on the suppression list. Its presence is a
// permanent block on all future sends to the address until it is explicitly
// removed, and removal is itself journaled.
type Suppression struct {
	Email   string            `json:"email" db:"email"`
	Reason  SuppressionReason `json:"reason" db:"reason"`
	Source  SuppressionSource `json:"source" db:"source"`
	Notes   string            `json:"notes,omitempty" db:"notes"`
	AddedAt time.Time         `json:"added_at" db:"added_at"`
}
