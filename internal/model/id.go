package model

import "github.com/google/uuid"

// NewID returns a new UUIDv7 as a hyphenated string.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time. Queries that break ordering ties by id therefore preserve
// insertion order.
//
// Panics if UUID generation fails (should never happen in practice).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
