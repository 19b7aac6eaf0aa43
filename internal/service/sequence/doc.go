// Package sequence implements the drip sequence engine: launch,
// enrollment, per-step scheduling, stop, and read-side projections.
//
// Step offsets are anchored at enrollment time: step N is due at
// enrolled_at + delay_days(N), independent of when earlier steps were
// actually sent. Suppression and the generic-address policy are enforced
// at enrollment time here, and again inside the dispatch claim. The
// enrollment check is the cheap coarse gate; the dispatch check is
// authoritative.
package sequence
