package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	call_sid   TEXT PRIMARY KEY,
	from_num   TEXT NOT NULL,
	to_num     TEXT NOT NULL,
	status     TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id          TEXT PRIMARY KEY,
	call_sid    TEXT NOT NULL REFERENCES calls(call_sid),
	position    INTEGER NOT NULL,
	transcript  TEXT NOT NULL,
	response    TEXT NOT NULL,
	heard_at    INTEGER NOT NULL,
	replied_at  INTEGER NOT NULL,
	audio_bytes INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_call ON turns(call_sid, position);
`

// OpenSQLite opens (creating if needed) a SQLite-backed store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save persists a summary in one transaction. Saving an existing call
// SID again is a no-op; summaries are immutable.
func (s *SQLiteStore) Save(ctx context.Context, summary *CallSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO calls (call_sid, from_num, to_num, status, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, summary.CallSID, summary.From, summary.To, summary.Status,
		summary.StartedAt.UnixMilli(), summary.EndedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if inserted == 0 {
		// Already saved; summaries never change after the first save.
		return nil
	}

	for i, turn := range summary.Turns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turns (id, call_sid, position, transcript, response, heard_at, replied_at, audio_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, turn.ID, summary.CallSID, i, turn.Transcript, turn.Response,
			turn.HeardAt.UnixMilli(), turn.RepliedAt.UnixMilli(), turn.AudioBytes); err != nil {
			return fmt.Errorf("insert turn %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Get retrieves one summary by exact call SID.
func (s *SQLiteStore) Get(ctx context.Context, callSID string) (*CallSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT call_sid, from_num, to_num, status, started_at, ended_at
		FROM calls
		WHERE call_sid = ?
	`, callSID)

	summary, err := scanSummary(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan call: %w", err)
	}

	turns, err := s.turnsForCall(ctx, callSID)
	if err != nil {
		return nil, err
	}
	summary.Turns = turns

	return summary, nil
}

// List returns all summaries, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*CallSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT call_sid, from_num, to_num, status, started_at, ended_at
		FROM calls
		ORDER BY ended_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var summaries []*CallSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, summary := range summaries {
		turns, err := s.turnsForCall(ctx, summary.CallSID)
		if err != nil {
			return nil, err
		}
		summary.Turns = turns
	}

	return summaries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// turnsForCall loads a call's turns in conversation order.
func (s *SQLiteStore) turnsForCall(ctx context.Context, callSID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transcript, response, heard_at, replied_at, audio_bytes
		FROM turns
		WHERE call_sid = ?
		ORDER BY position ASC
	`, callSID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		var heardAt, repliedAt int64
		if err := rows.Scan(&t.ID, &t.Transcript, &t.Response,
			&heardAt, &repliedAt, &t.AudioBytes); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.HeardAt = time.UnixMilli(heardAt)
		t.RepliedAt = time.UnixMilli(repliedAt)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSummary reads one calls row.
func scanSummary(row rowScanner) (*CallSummary, error) {
	var summary CallSummary
	var startedAt, endedAt int64

	if err := row.Scan(&summary.CallSID, &summary.From, &summary.To,
		&summary.Status, &startedAt, &endedAt); err != nil {
		return nil, err
	}

	summary.StartedAt = time.UnixMilli(startedAt)
	summary.EndedAt = time.UnixMilli(endedAt)
	return &summary, nil
}

// Verify SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)
