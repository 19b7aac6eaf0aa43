// Package journal implements the append-only compliance audit log.
//
// Every suppression add/remove, every skipped send, and every CSV
// import/export is recorded here. There is deliberately no update or
// delete API: a wrong entry is corrected by appending another entry.
// The journal is the system's ground truth for compliance audits.
package journal
