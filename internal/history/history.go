// Package history records conversation transcripts in SQLite.
// If opening the DB or executing queries fails, the store falls back to in-memory storage.
// Transcripts are an audit trail; sessions are never restored from them.
package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/logger"
)

// Record is one message of a session transcript.
type Record struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists records to SQLite when available and always keeps an
// in-memory copy as fallback.
type Store struct {
	mu     sync.Mutex
	memory []Record
	db     *sql.DB
}

// Open opens (creating if needed) the SQLite database at path. An empty path,
// or any failure to open it, yields a memory-only store.
func Open(path string) *Store {
	s := &Store{}
	if path == "" {
		return s
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT,
        role TEXT,
        content TEXT,
        created_at TEXT
    );`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		db.Close()
		return s
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	s.db = db
	return s
}

// Persistent reports whether records reach SQLite.
func (s *Store) Persistent() bool { return s.db != nil }

// Save stores rec.
func (s *Store) Save(ctx context.Context, rec Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if s.db != nil {
		_, err := s.db.ExecContext(ctx, `INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			rec.SessionID, rec.Role, rec.Content, rec.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	rec.ID = int64(len(s.memory) + 1)
	s.memory = append(s.memory, rec)
	s.mu.Unlock()
}

// List returns all records of a session in chronological order.
func (s *Store) List(ctx context.Context, sessionID string) []Record {
	if s.db != nil {
		out, err := s.query(ctx, sessionID)
		if err == nil {
			return out
		}
		logger.L.Warn("sqlite query failed; reading in-memory history", "error", err)
	}

	var out []Record
	s.mu.Lock()
	for _, r := range s.memory {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	s.mu.Unlock()
	return out
}

func (s *Store) query(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var created string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Role, &r.Content, &created); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Recorder returns an observer that saves every message the engine appends.
func Recorder(s *Store) conversation.Observer {
	return func(t conversation.Transition) {
		if t.Appended == nil {
			return
		}
		s.Save(context.Background(), Record{
			SessionID: t.SessionID,
			Role:      string(t.Appended.Role),
			Content:   t.Appended.Content,
		})
	}
}
