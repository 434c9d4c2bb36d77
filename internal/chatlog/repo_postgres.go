package chatlog

import (
	"context"
	"database/sql"
)

// PostgresRepo reads chat sessions/messages for the console and wipes them
// during the administrative reset.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const chatSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
  id         TEXT PRIMARY KEY,
  user_id    TEXT NOT NULL,
  title      TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
  id         TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  role       TEXT NOT NULL,
  content    TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session
  ON chat_messages (session_id, created_at);
`

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, chatSchema)
	return err
}

func (r *PostgresRepo) ListSessions(ctx context.Context, limit int) ([]ChatSession, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, user_id, title, created_at, updated_at
FROM chat_sessions
ORDER BY updated_at DESC
LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatSession
	for rows.Next() {
		var s ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	const q = `
SELECT id, session_id, role, content, created_at
FROM chat_messages
WHERE session_id = $1
ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteAll wipes both collections, each in its own transaction, and returns
// the deleted counts keyed by collection name.
func (r *PostgresRepo) DeleteAll(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, table := range []string{"chat_messages", "chat_sessions"} {
		res, err := r.db.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return counts, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return counts, err
		}
		counts[table] = n
	}
	return counts, nil
}
