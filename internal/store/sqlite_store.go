package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"jardin/internal/model"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	// One writer keeps merges serialized on the same file.
	db.SetMaxOpenConns(1)
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetProgress(ctx context.Context, userID string) (model.UserProgress, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, updated_at
		FROM users
		WHERE id = ?`,
		userID,
	)
	var doc model.UserProgress
	var updatedAt string
	err := row.Scan(&doc.UserID, &doc.Email, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserProgress{}, false, nil
	}
	if err != nil {
		return model.UserProgress{}, false, err
	}
	doc.UpdatedAt = fromTS(updatedAt)
	doc.Progress = make(map[string]string)
	doc.Confirmed = make(map[string]time.Time)

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, status, confirmed_at
		FROM progress
		WHERE user_id = ?
		ORDER BY confirmed_at ASC`,
		userID,
	)
	if err != nil {
		return model.UserProgress{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID, status, confirmedAt string
		if err := rows.Scan(&itemID, &status, &confirmedAt); err != nil {
			return model.UserProgress{}, false, err
		}
		doc.Progress[itemID] = status
		doc.Confirmed[itemID] = fromTS(confirmedAt)
	}
	if err := rows.Err(); err != nil {
		return model.UserProgress{}, false, err
	}
	return doc, true, nil
}

func (s *SQLiteStore) MergeProgress(ctx context.Context, userID string, patch model.ProgressPatch) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	at := patch.At
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// An empty email never overwrites a stored one.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END,
			updated_at = excluded.updated_at`,
		userID,
		strings.TrimSpace(patch.Email),
		toTS(at),
	); err != nil {
		return fmt.Errorf("merge user: %w", err)
	}

	if itemID := strings.TrimSpace(patch.ItemID); itemID != "" {
		status := patch.Status
		if status == "" {
			status = model.StatusConfirmed
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO progress (user_id, item_id, status, confirmed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, item_id) DO UPDATE SET status = excluded.status`,
			userID,
			itemID,
			status,
			toTS(at),
		); err != nil {
			return fmt.Errorf("merge progress: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ReadSlot(ctx context.Context, name string) ([]byte, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM slots WHERE name = ?`, name)
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(data), true, nil
}

func (s *SQLiteStore) WriteSlot(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO slots (name, data, updated_at)
		VALUES (?, ?, ?)`,
		name,
		string(data),
		toTS(time.Now()),
	)
	return err
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS progress (
			user_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			status TEXT NOT NULL,
			confirmed_at TEXT NOT NULL,
			PRIMARY KEY (user_id, item_id)
		);
		CREATE TABLE IF NOT EXISTS slots (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`)
	return err
}

func toTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fromTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
