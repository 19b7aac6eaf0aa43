package sequence

import "errors"

// Sentinel errors for the sequence service layer.
var (
	ErrNotFound     = errors.New("sequence not found")
	ErrNoTestEmails = errors.New("test mode requires at least one test email")
	ErrBadMode      = errors.New("mode must be live or test")
)
