package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS frames (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	direction TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_frames_session ON frames(session_id, id);
`

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates (or reuses) the transcript database at dbPath.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save appends one frame to the transcript.
func (s *SQLiteStore) Save(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO frames (session_id, role, direction, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, query, e.SessionID, e.Role, e.Direction, e.Payload, createdAt); err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

// BySession returns a session's frames in insertion order.
func (s *SQLiteStore) BySession(ctx context.Context, sessionID string) ([]Entry, error) {
	query := `
		SELECT id, session_id, role, direction, payload, created_at
		FROM frames
		WHERE session_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Direction, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
