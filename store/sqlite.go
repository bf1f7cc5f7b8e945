// Package store is the session store: a single embedded
// relational database holding sessions, their messages, and the
// per-owner active-session pointer.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/steelforge/llmbridge/bridgeerr"
	"github.com/steelforge/llmbridge/model"
)

// timestampLayout is the ISO-8601 text form messages.timestamp is stored in.
const timestampLayout = time.RFC3339Nano

// SQLiteStore is the SQLite-backed SessionStore: sessions, messages and
// active_sessions live in one file, guarded by a single mutex since SQLite
// itself serializes writers.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// NewSQLiteStore opens (creating if necessary) the database at path. An
// empty path opens an in-memory database, useful for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create session db directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer SQLite file

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session db schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		owner_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		system_prompt TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (owner_id, name)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER NOT NULL,
		owner_id INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		sender_nickname TEXT NOT NULL DEFAULT '',
		session_name TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (id, owner_id, session_name)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(owner_id, session_name);

	CREATE TABLE IF NOT EXISTS active_sessions (
		owner_id INTEGER PRIMARY KEY,
		session_name TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// SQLite has no "ALTER TABLE ADD COLUMN IF NOT EXISTS"; best-effort
	// migrations for columns added after the first schema version ignore
	// their own errors.
	_ = s.migrateAddSystemPromptDefault()
	return nil
}

func (s *SQLiteStore) migrateAddSystemPromptDefault() error {
	_, err := s.db.Exec(`ALTER TABLE sessions ADD COLUMN system_prompt TEXT NOT NULL DEFAULT ''`)
	return err
}

// SaveSessionInfo upserts a session's (model, system_prompt) row. It
// implements model.SessionStore.
func (s *SQLiteStore) SaveSessionInfo(ownerID int64, name, modelName, systemPrompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO sessions (owner_id, name, model, system_prompt) VALUES (?, ?, ?, ?)`,
		ownerID, name, modelName, systemPrompt,
	)
	if err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("save session info: %v", err)}
	}
	return nil
}

// SyncMessages implements the delete-then-insert-by-id-set policy: it
// computes the set of ids currently in memory vs in storage for
// (ownerID, name), deletes rows not in memory, and inserts rows not yet in
// storage. It implements model.SessionStore.
func (s *SQLiteStore) SyncMessages(ownerID int64, name string, messages []model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("begin sync tx: %v", err)}
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM messages WHERE owner_id = ? AND session_name = ?`, ownerID, name)
	if err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("query existing message ids: %v", err)}
	}
	existing := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("scan message id: %v", err)}
		}
		existing[id] = true
	}
	rows.Close()

	inMemory := make(map[int64]bool, len(messages))
	for _, m := range messages {
		inMemory[m.ID] = true
	}

	for id := range existing {
		if inMemory[id] {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM messages WHERE owner_id = ? AND session_name = ? AND id = ?`, ownerID, name, id); err != nil {
			return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("delete stale message: %v", err)}
		}
	}

	for _, m := range messages {
		if existing[m.ID] {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (id, owner_id, sender_id, sender_nickname, session_name, timestamp, role, content)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, ownerID, m.SenderID, m.SenderNickname, name, m.Timestamp.UTC().Format(timestampLayout), string(m.Role), m.Content,
		); err != nil {
			return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("insert new message: %v", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("commit sync tx: %v", err)}
	}
	return nil
}

// Load reads a session's row and all of its messages, ordered by timestamp
// ascending. The bool return reports whether the session was found.
func (s *SQLiteStore) Load(ownerID int64, name string) (*model.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var modelName, systemPrompt string
	err := s.db.QueryRow(`SELECT model, system_prompt FROM sessions WHERE owner_id = ? AND name = ?`, ownerID, name).
		Scan(&modelName, &systemPrompt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("load session row: %v", err)}
	}

	messages, err := s.loadMessages(ownerID, name)
	if err != nil {
		return nil, false, err
	}

	session := model.NewPersistentSession(s, ownerID, name, modelName, systemPrompt)
	session.HydrateMessages(messages)
	return session, true, nil
}

func (s *SQLiteStore) loadMessages(ownerID int64, name string) ([]model.ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, sender_id, sender_nickname, timestamp, role, content
		 FROM messages WHERE owner_id = ? AND session_name = ? ORDER BY timestamp ASC`,
		ownerID, name,
	)
	if err != nil {
		return nil, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("query messages: %v", err)}
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var (
			id                            int64
			senderID                      int64
			senderNickname, role, content string
			timestampText                 string
		)
		if err := rows.Scan(&id, &senderID, &senderNickname, &timestampText, &role, &content); err != nil {
			return nil, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("scan message row: %v", err)}
		}
		ts, err := time.Parse(timestampLayout, timestampText)
		if err != nil {
			return nil, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("parse message timestamp: %v", err)}
		}
		messages = append(messages, model.ChatMessage{
			ID:             id,
			OwnerID:        ownerID,
			SenderID:       senderID,
			SenderNickname: senderNickname,
			SessionName:    name,
			Timestamp:      ts,
			Role:           model.MessageRole(role),
			Content:        content,
		})
	}
	return messages, rows.Err()
}

// Delete cascades the removal of a session's row, its messages, and its
// active-session pointer (if it was active).
func (s *SQLiteStore) Delete(ownerID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("begin delete tx: %v", err)}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE owner_id = ? AND name = ?`, ownerID, name); err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("delete session row: %v", err)}
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE owner_id = ? AND session_name = ?`, ownerID, name); err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("delete session messages: %v", err)}
	}
	if _, err := tx.Exec(`DELETE FROM active_sessions WHERE owner_id = ? AND session_name = ?`, ownerID, name); err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("clear active pointer: %v", err)}
	}

	if err := tx.Commit(); err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("commit delete tx: %v", err)}
	}
	return nil
}

// ListSessionNames returns the names of every persistent session owned by
// ownerID.
func (s *SQLiteStore) ListSessionNames(ownerID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT name FROM sessions WHERE owner_id = ? ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("list sessions: %v", err)}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("scan session name: %v", err)}
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SessionExists reports whether (ownerID, name) has a persisted session row.
func (s *SQLiteStore) SessionExists(ownerID int64, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM sessions WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&count)
	if err != nil {
		return false, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("check session existence: %v", err)}
	}
	return count > 0, nil
}

// MarkActive atomically replaces ownerID's active-session pointer with
// name, clearing any prior mark.
func (s *SQLiteStore) MarkActive(ownerID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO active_sessions (owner_id, session_name) VALUES (?, ?)`, ownerID, name)
	if err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("mark active session: %v", err)}
	}
	return nil
}

// GetActiveSession returns ownerID's active session name, if any.
func (s *SQLiteStore) GetActiveSession(ownerID int64) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRow(`SELECT session_name FROM active_sessions WHERE owner_id = ?`, ownerID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("get active session: %v", err)}
	}
	return name, true, nil
}

// SessionSummary is one row of the cross-owner session listing the debug
// dashboard renders.
type SessionSummary struct {
	OwnerID      int64
	Name         string
	Model        string
	MessageCount int
}

// ListAllSessions returns every persisted session across all owners, ordered
// by owner id and then by name, both ascending, along with the total row count so the
// caller can paginate. It is read-only and exists for debugui, which has no
// business looking at a single owner's sessions only.
func (s *SQLiteStore) ListAllSessions(limit, offset int) ([]SessionSummary, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("count sessions: %v", err)}
	}

	rows, err := s.db.Query(
		`SELECT s.owner_id, s.name, s.model, COUNT(m.id)
		 FROM sessions s
		 LEFT JOIN messages m ON m.owner_id = s.owner_id AND m.session_name = s.name
		 GROUP BY s.owner_id, s.name
		 ORDER BY s.owner_id ASC, s.name ASC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("list all sessions: %v", err)}
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.OwnerID, &sum.Name, &sum.Model, &sum.MessageCount); err != nil {
			return nil, 0, &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("scan session summary: %v", err)}
		}
		summaries = append(summaries, sum)
	}
	return summaries, total, rows.Err()
}

// ClearActiveSession removes ownerID's active-session pointer, if any.
func (s *SQLiteStore) ClearActiveSession(ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM active_sessions WHERE owner_id = ?`, ownerID); err != nil {
		return &bridgeerr.StoreErrorDetail{Detail: fmt.Sprintf("clear active session: %v", err)}
	}
	return nil
}
