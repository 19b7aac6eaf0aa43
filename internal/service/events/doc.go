// Package events implements the delivery event log and its metric
// projections, plus the delivery-feedback handler that feeds regulatory
// auto-suppression.
//
// The event log is append-only. Sequence metrics are always recomputed
// from the log, so a replayed or late event changes the metrics without
// any counter reconciliation.
package events
