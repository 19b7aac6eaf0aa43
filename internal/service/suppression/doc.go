// Package suppression implements the compliance suppression list.
//
// This is the single source of truth for whether an email address may
// receive mail. Suppressions flow in from multiple sources (unsubscribe
// links, bounce and complaint feedback, manual admin actions, CSV
// imports) and are checked both at enrollment time and again inside the
// dispatch claim before every send.
//
// Every add and remove is recorded in the compliance journal; a failed
// journal write fails the whole operation. The service layer contains
// pure business logic and depends on the Repository interface defined in
// repository.go. It never imports net/http or database/sql directly.
package suppression
