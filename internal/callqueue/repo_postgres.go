package callqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pharmline/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists call requests in Postgres.
//
// Ordering: ListActive orders by created_at then seq; seq is a bigserial that
// preserves arrival order when two admissions land on the same timestamp.
//
// Atomicity: BatchUpdate and DeleteAll run inside a single transaction, so a
// reader never observes a half-renumbered queue.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const callRequestsSchema = `
CREATE TABLE IF NOT EXISTS call_requests (
  id                TEXT PRIMARY KEY,
  seq               BIGSERIAL,
  user_id           TEXT NOT NULL,
  caller_name       TEXT NOT NULL DEFAULT '',
  caller_first_name TEXT NOT NULL DEFAULT '',
  caller_last_name  TEXT NOT NULL DEFAULT '',
  user_email        TEXT NOT NULL DEFAULT '',
  identity          TEXT NOT NULL,
  user_message      TEXT NOT NULL DEFAULT '',
  summarized_logs   TEXT NOT NULL DEFAULT '',
  log_range         TEXT NOT NULL DEFAULT '',
  status            TEXT NOT NULL,
  queue_position    INT,
  created_at        TIMESTAMPTZ NOT NULL,
  updated_at        TIMESTAMPTZ NOT NULL,
  started_at        TIMESTAMPTZ,
  ended_at          TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_call_requests_status_created
  ON call_requests (status, created_at, seq);
CREATE INDEX IF NOT EXISTS idx_call_requests_user
  ON call_requests (user_id);
`

// EnsureSchema creates the call_requests table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, callRequestsSchema)
	return mapStoreErr(err)
}

const callRequestColumns = `
id, user_id, caller_name, caller_first_name, caller_last_name, user_email,
identity, user_message, summarized_logs, log_range, status, queue_position,
created_at, updated_at, started_at, ended_at`

func (s *PostgresStore) Create(ctx context.Context, cr CallRequest) error {
	const q = `
INSERT INTO call_requests (
  id, user_id, caller_name, caller_first_name, caller_last_name, user_email,
  identity, user_message, summarized_logs, log_range, status, queue_position,
  created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`
	_, err := s.db.ExecContext(ctx, q,
		cr.ID,
		cr.UserID,
		cr.CallerName,
		cr.CallerFirstName,
		cr.CallerLastName,
		cr.UserEmail,
		cr.Identity,
		cr.Handoff.UserMessage,
		cr.Handoff.SummarizedLogs,
		cr.Handoff.LogRange,
		string(cr.Status),
		cr.QueuePosition,
		cr.CreatedAt,
		cr.UpdatedAt,
	)
	return mapStoreErr(err)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (CallRequest, error) {
	q := `SELECT ` + callRequestColumns + ` FROM call_requests WHERE id = $1`
	return scanCallRequest(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) UpdateFields(ctx context.Context, id string, f Fields) error {
	if f.IsZero() {
		return nil
	}
	q, args := buildUpdate(id, f, s.clock().UTC())
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapStoreErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]CallRequest, error) {
	// The active set is a fixed status list; keeping it literal avoids
	// driver-specific array binding.
	q := `SELECT ` + callRequestColumns + `
FROM call_requests
WHERE status IN ('requested','queued','ringing','in_progress')
ORDER BY created_at ASC, seq ASC`
	return s.queryMany(ctx, q)
}

func (s *PostgresStore) BatchUpdate(ctx context.Context, updates []FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	now := s.clock().UTC()
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		for _, u := range updates {
			if u.Fields.IsZero() {
				continue
			}
			q, args := buildUpdate(u.ID, u.Fields, now)
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, u.ID)
			}
		}
		return nil
	})
	return mapStoreErr(err)
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]CallRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + callRequestColumns + `
FROM call_requests
ORDER BY created_at DESC, seq DESC
LIMIT $1`
	return s.queryMany(ctx, q, limit)
}

func (s *PostgresStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM call_requests`)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) queryMany(ctx context.Context, q string, args ...any) ([]CallRequest, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	defer rows.Close()

	var out []CallRequest
	for rows.Next() {
		cr, err := scanCallRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(err)
	}
	return out, nil
}

// buildUpdate assembles the SET clause from the typed partial. updated_at is
// always stamped.
func buildUpdate(id string, f Fields, now time.Time) (string, []any) {
	sets := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		sets = append(sets, "status = "+arg(string(*f.Status)))
	}
	if f.ClearPosition {
		sets = append(sets, "queue_position = NULL")
	} else if f.Position != nil {
		sets = append(sets, "queue_position = "+arg(*f.Position))
	}
	if f.StartedAt != nil {
		sets = append(sets, "started_at = "+arg(*f.StartedAt))
	}
	if f.EndedAt != nil {
		sets = append(sets, "ended_at = "+arg(*f.EndedAt))
	}
	sets = append(sets, "updated_at = "+arg(now))

	q := "UPDATE call_requests SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id)
	return q, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallRequest(row rowScanner) (CallRequest, error) {
	var cr CallRequest
	var status string
	var pos sql.NullInt64
	var started, ended sql.NullTime
	err := row.Scan(
		&cr.ID,
		&cr.UserID,
		&cr.CallerName,
		&cr.CallerFirstName,
		&cr.CallerLastName,
		&cr.UserEmail,
		&cr.Identity,
		&cr.Handoff.UserMessage,
		&cr.Handoff.SummarizedLogs,
		&cr.Handoff.LogRange,
		&status,
		&pos,
		&cr.CreatedAt,
		&cr.UpdatedAt,
		&started,
		&ended,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRequest{}, ErrNotFound
		}
		return CallRequest{}, mapStoreErr(err)
	}
	cr.Status = Status(status)
	if pos.Valid {
		p := int(pos.Int64)
		cr.QueuePosition = &p
	}
	if started.Valid {
		t := started.Time
		cr.StartedAt = &t
	}
	if ended.Valid {
		t := ended.Time
		cr.EndedAt = &t
	}
	return cr, nil
}

// mapStoreErr translates backend resource exhaustion into ErrUnavailable.
// Postgres error class 53 covers insufficient resources (disk full, too many
// connections, out of memory); class 57 covers operator intervention
// (shutdown). Both are retry-later conditions for callers.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		if strings.HasPrefix(code, "53") || strings.HasPrefix(code, "57") {
			return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Message)
		}
	}
	return err
}
