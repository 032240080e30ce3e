package util

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns an opaque identifier for conversations and messages.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current time in UTC, truncated to millisecond precision
// so timestamps round-trip through BSON unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
