// Package session persists agent chat sessions as one JSON file each and
// fronts the store with an in-memory manager for the server.
package session

import (
	"time"

	"quartermaster/pkg/types"
)

// Session kinds.
const (
	KindNegotiation = "negotiation"
	KindCost        = "cost"
)

// Session is one chat conversation with the vendor or cost agent, anchored
// to the item it discusses.
type Session struct {
	ID        string              `json:"id"`
	Kind      string              `json:"kind"`
	Item      types.Item          `json:"item"`
	Request   types.Request       `json:"request"`
	Messages  []types.ChatMessage `json:"messages"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Append adds a message and bumps UpdatedAt.
func (s *Session) Append(msg types.ChatMessage) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}
