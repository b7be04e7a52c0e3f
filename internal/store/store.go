// Package store persists session documents keyed by game code. Three
// interchangeable backends are provided; the rest of the system only sees the
// Store interface and assumes nothing about which one is wired in.
package store

import (
	"context"
	"errors"

	"colornamer/internal/game"
)

var ErrNotFound = errors.New("session not found")

// UpdateLogSize bounds the per-session diagnostic update ring.
const UpdateLogSize = 50

// Update is one entry in the diagnostic update log. The log is only for
// polling and debugging; it is never authoritative.
type Update struct {
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	PlayerID  string `json:"playerId,omitempty"`
}

type Store interface {
	// Get returns the session document, or ErrNotFound.
	Get(ctx context.Context, id string) (game.State, error)
	// Put writes the whole document. Last write wins.
	Put(ctx context.Context, id string, s game.State) error
	// Delete removes the document and its update log.
	Delete(ctx context.Context, id string) error
	// AppendUpdate records a diagnostic update, keeping at most UpdateLogSize.
	AppendUpdate(ctx context.Context, id string, upd Update) error
	// Updates returns logged updates newer than since.
	Updates(ctx context.Context, id string, since int64) ([]Update, error)
}
