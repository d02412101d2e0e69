package transcript

import (
	"context"

	"github.com/rs/zerolog"
)

// Recorder adapts a Store to the per-frame hook the simulated clients call.
// Persistence failures are logged and swallowed: the audit trail must never
// disturb the protocol flow.
type Recorder struct {
	store     Store
	sessionID string
	log       *zerolog.Logger
}

// NewRecorder builds a recorder writing under the given session id.
func NewRecorder(store Store, sessionID string, logger *zerolog.Logger) *Recorder {
	return &Recorder{store: store, sessionID: sessionID, log: logger}
}

// Record persists one frame.
func (r *Recorder) Record(role, direction string, payload []byte) {
	e := Entry{
		SessionID: r.sessionID,
		Role:      role,
		Direction: direction,
		Payload:   append([]byte(nil), payload...),
	}
	if err := r.store.Save(context.Background(), e); err != nil {
		r.log.Warn().Err(err).Str("role", role).Msg("failed to persist transcript frame")
	}
}
