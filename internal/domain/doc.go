// Package domain holds the core types shared across the sequencer:
// prospects, sequences and their per-step enrollment state, suppression
// entries, journal entries, delivery events, and step templates.
//
// Types here are plain data with no behavior beyond small invariant
// helpers. They never import database/sql or net/http.
package domain
