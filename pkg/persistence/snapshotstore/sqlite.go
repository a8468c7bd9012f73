package snapshotstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite snapshot store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteDSNForFile returns a DSN for a database file.
func SQLiteDSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("sqlite snapshot store: empty path")
	}
	// WAL for concurrent readers + writer. busy_timeout to avoid transient SQLITE_BUSY.
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path), nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chatbox_snapshots (
			session_id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL,
			current_conversation TEXT NOT NULL DEFAULT '',
			conversations INTEGER NOT NULL DEFAULT 0,
			snapshot_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chatbox_snapshots_by_updated
			ON chatbox_snapshots(updated_at_ms DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "sqlite snapshot store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, sessionID string, snapshot []byte) (uint64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("sqlite snapshot store: db is nil")
	}
	sessionID, err := validate(sessionID, snapshot)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite snapshot store")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e := describe(Entry{SessionID: sessionID}, snapshot)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite snapshot store: begin")
	}
	defer func() { _ = tx.Rollback() }()

	// strictly increasing so List order follows Save order
	var lastMs int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(updated_at_ms), 0) FROM chatbox_snapshots`).Scan(&lastMs); err != nil {
		return 0, errors.Wrap(err, "sqlite snapshot store: read clock")
	}
	now := time.Now().UnixMilli()
	if now <= lastMs {
		now = lastMs + 1
	}

	var version int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chatbox_snapshots (
			session_id, version, updated_at_ms, current_conversation, conversations, snapshot_json
		) VALUES (?, 1, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			version = chatbox_snapshots.version + 1,
			updated_at_ms = excluded.updated_at_ms,
			current_conversation = excluded.current_conversation,
			conversations = excluded.conversations,
			snapshot_json = excluded.snapshot_json
		RETURNING version
	`, sessionID, now, e.CurrentConversation, e.Conversations, string(snapshot)).Scan(&version)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite snapshot store: upsert")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "sqlite snapshot store: commit")
	}
	return int64ToUint64(version)
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) ([]byte, uint64, error) {
	if s == nil || s.db == nil {
		return nil, 0, errors.New("sqlite snapshot store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sessionID = strings.TrimSpace(sessionID)

	var (
		data    string
		version int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT snapshot_json, version FROM chatbox_snapshots WHERE session_id = ?
	`, sessionID).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, errors.Wrapf(ErrNotFound, "session %q", sessionID)
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "sqlite snapshot store: load")
	}
	v, err := int64ToUint64(version)
	if err != nil {
		return nil, 0, err
	}
	return []byte(data), v, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite snapshot store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sessionID = strings.TrimSpace(sessionID)
	res, err := s.db.ExecContext(ctx, `DELETE FROM chatbox_snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		return errors.Wrap(err, "sqlite snapshot store: delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "sqlite snapshot store: delete")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "session %q", sessionID)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite snapshot store: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, version, updated_at_ms, current_conversation, conversations, LENGTH(CAST(snapshot_json AS BLOB))
		FROM chatbox_snapshots
		ORDER BY updated_at_ms DESC, session_id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite snapshot store: list")
	}
	defer func() { _ = rows.Close() }()

	ret := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			version int64
		)
		if err := rows.Scan(&e.SessionID, &version, &e.UpdatedAtMs, &e.CurrentConversation, &e.Conversations, &e.Bytes); err != nil {
			return nil, errors.Wrap(err, "sqlite snapshot store: scan")
		}
		if e.Version, err = int64ToUint64(version); err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite snapshot store: list rows")
	}
	return ret, nil
}

func int64ToUint64(v int64) (uint64, error) {
	if v < 0 {
		return 0, errors.Errorf("value %d is negative", v)
	}
	return uint64(v), nil
}
