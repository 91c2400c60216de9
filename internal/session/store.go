// Package session persists conversation sessions and their message
// history in the local SQLite database.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/jovyan/nbagent/internal/log"
)

// ErrSessionNotFound indicates the session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// DefaultHistoryLimit bounds how many messages History returns when the
// store is created with a non-positive limit.
const DefaultHistoryLimit = 100

// Session is one conversation.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title,omitempty"`
	Model        string    `json:"model,omitempty"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store manages session persistence. It is safe for concurrent use.
type Store struct {
	db           *sql.DB
	logger       log.Logger
	historyLimit int
}

// New creates a Store backed by db. historyLimit bounds the number of
// messages History returns per session.
func New(db *sql.DB, historyLimit int, logger log.Logger) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger, historyLimit: historyLimit}
}

// Create creates a new session.
func (s *Store) Create(ctx context.Context, title, model string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.New(),
		Title:     title,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, model, message_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		sess.ID.String(), title, model, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "title", title)
	return sess, nil
}

// GetOrCreate returns the session with the given ID, creating it when it
// does not exist yet. Chat frontends generate session IDs client-side, so
// the first message of a conversation arrives with an unknown ID.
func (s *Store) GetOrCreate(ctx context.Context, id uuid.UUID, model string) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, model, message_count, created_at, updated_at)
		 VALUES (?, '', ?, 0, ?, ?)`,
		id.String(), model, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session %s: %w", id, err)
	}

	s.logger.Debug("created session on demand", "id", id)
	return &Session{ID: id, Model: model, CreatedAt: now, UpdatedAt: now}, nil
}

// Get retrieves a session by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, model, message_count, created_at, updated_at
		 FROM sessions WHERE id = ?`, id.String(),
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return sess, nil
}

// List returns sessions ordered by most recently updated.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, model, message_count, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AppendMessages appends messages to a session inside one transaction,
// assigning consecutive sequence numbers.
func (s *Store) AppendMessages(ctx context.Context, id uuid.UUID, messages []*ai.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM session_messages WHERE session_id = ?`,
		id.String(),
	).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("reading sequence number: %w", err)
	}

	now := time.Now().Unix()
	for i, msg := range messages {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshaling message %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO session_messages (session_id, role, content, sequence_number, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id.String(), string(msg.Role), string(content), maxSeq+i+1, now,
		)
		if err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = ?, updated_at = ? WHERE id = ?`,
		maxSeq+len(messages), now, id.String(),
	)
	if err != nil {
		return fmt.Errorf("updating session metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session metadata: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}

	s.logger.Debug("appended messages", "session_id", id, "count", len(messages))
	return nil
}

// History returns the most recent messages of a session in conversation
// order, bounded by the store's history limit.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]*ai.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM (
		    SELECT role, content, sequence_number FROM session_messages
		    WHERE session_id = ?
		    ORDER BY sequence_number DESC LIMIT ?
		 ) ORDER BY sequence_number ASC`,
		id.String(), s.historyLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*ai.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		var parts []*ai.Part
		if err := json.Unmarshal([]byte(content), &parts); err != nil {
			s.logger.Warn("skipping malformed message", "session_id", id, "error", err)
			continue
		}
		messages = append(messages, &ai.Message{Role: ai.Role(role), Content: parts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", id, err)
	}
	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		idStr                string
		sess                 Session
		createdAt, updatedAt int64
	)
	err := row.Scan(&idStr, &sess.Title, &sess.Model, &sess.MessageCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing session id %q: %w", idStr, err)
	}
	sess.ID = id
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)
	return &sess, nil
}
