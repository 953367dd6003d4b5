// Package id generates request and session identifiers and carries them
// through context so logs, traces, and API responses can be correlated.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRequestID generates a request identifier with a stable prefix for display.
func NewRequestID() string {
	return newIdentifier("req")
}

// NewSessionID generates a chat session identifier.
func NewSessionID() string {
	return newIdentifier("session")
}

func newIdentifier(prefix string) string {
	// UUIDv7 is time-ordered, which keeps session files listable in
	// creation order. NewV7 only fails when the entropy source does, in
	// which case v4 is fine.
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return fmt.Sprintf("%s-%s", prefix, u.String())
}
