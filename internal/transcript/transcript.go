// Package transcript persists every frame the simulated clients see or send,
// so a session can be replayed after the fact.
package transcript

import (
	"context"
	"time"
)

// Frame directions as seen from the harness.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Entry is one recorded frame.
type Entry struct {
	ID        int64
	SessionID string
	Role      string
	Direction string
	Payload   []byte
	CreatedAt time.Time
}

// Store is the persistence surface for session transcripts.
type Store interface {
	Save(ctx context.Context, e Entry) error
	BySession(ctx context.Context, sessionID string) ([]Entry, error)
	Close() error
}
