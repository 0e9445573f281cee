// Package risklog persists timestamped front-running risk events.
// Persistence is advisory: stores tolerate malformed or missing data
// and report it as "no events" rather than failing the caller.
package risklog

import (
	"context"
	"time"
)

// Entry is one timestamped risk event.
type Entry struct {
	Timestamp int64 `json:"timestamp"` // epoch millis
}

// Store is an append-only log of risk events. RecentSince returns the
// entries younger than window and opportunistically prunes older ones;
// prune failures are swallowed. An error from RecentSince means the
// backing store could not be read at all, not that it was empty or
// malformed.
type Store interface {
	Append(ctx context.Context, e Entry) error
	RecentSince(ctx context.Context, now time.Time, window time.Duration) ([]Entry, error)
}
