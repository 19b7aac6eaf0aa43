package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ProspectStatus tracks where a prospect sits in the outreach funnel.
// The directory owns these values; the sequencer only reads them.
type ProspectStatus string

const (
	ProspectNew       ProspectStatus = "new"
	ProspectContacted ProspectStatus = "contacted"
	ProspectReplied   ProspectStatus = "replied"
	ProspectClosed    ProspectStatus = "closed"
)

// Prospect is the sequencer's read-only view of a directory record.
type Prospect struct {
	Email     string         `json:"email" db:"email"`
	FirstName string         `json:"first_name" db:"first_name"`
	Status    ProspectStatus `json:"status" db:"status"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lowercases and trims an address. All storage and lookups
// key on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail returns an error if the address is not syntactically valid.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(NormalizeEmail(email)) {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}

// genericLocalParts are role accounts excluded from live targeting as a
// policy rule. Mail to these rarely reaches a person and inflates
// complaint rates.
var genericLocalParts = map[string]bool{
	"info":       true,
	"contact":    true,
	"admin":      true,
	"support":    true,
	"sales":      true,
	"office":     true,
	"hello":      true,
	"team":       true,
	"noreply":    true,
	"no-reply":   true,
	"postmaster": true,
	"abuse":      true,
	"webmaster":  true,
}

// IsGenericAddress reports whether the local part is a role account
// (info@, contact@, admin@, ...).
func IsGenericAddress(email string) bool {
	local, _, found := strings.Cut(NormalizeEmail(email), "@")
	if !found {
		return false
	}
	return genericLocalParts[local]
}
