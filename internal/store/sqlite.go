// Package store implements the durable key-value persistence layer on
// SQLite. Records are stored as JSON blobs in one table per namespace so
// that schema evolution stays additive.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ayaka/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.Store.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS identities (
		user_id INTEGER PRIMARY KEY,
		record  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress (
		user_id INTEGER PRIMARY KEY,
		record  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS user_memories (
		user_id INTEGER PRIMARY KEY,
		record  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_memories (
		chat_id INTEGER PRIMARY KEY,
		record  TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) get(ctx context.Context, table, keyCol string, key int64, out any) (bool, error) {
	var raw string
	query := fmt.Sprintf(`SELECT record FROM %s WHERE %s = ?`, table, keyCol)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("corrupt record in %s for key %d: %w", table, key, err)
	}
	return true, nil
}

func (s *SQLiteStore) put(ctx context.Context, table, keyCol string, key int64, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("cannot marshal record for %s: %w", table, err)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (%s, record) VALUES (?, ?)
		 ON CONFLICT(%s) DO UPDATE SET record = excluded.record`,
		table, keyCol, keyCol,
	)
	_, err = s.db.ExecContext(ctx, query, key, string(raw))
	return err
}

func (s *SQLiteStore) keys(ctx context.Context, table, keyCol string) ([]int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`, keyCol, table, keyCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []int64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) GetIdentity(ctx context.Context, userID int64) (*domain.Identity, error) {
	var id domain.Identity
	ok, err := s.get(ctx, "identities", "user_id", userID, &id)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

func (s *SQLiteStore) PutIdentity(ctx context.Context, id *domain.Identity) error {
	return s.put(ctx, "identities", "user_id", id.UserID, id)
}

func (s *SQLiteStore) AllIdentities(ctx context.Context) ([]*domain.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM identities ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []*domain.Identity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var id domain.Identity
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			s.logger.Warn("skipping corrupt identity record", "err", err)
			continue
		}
		ids = append(ids, &id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) GetProgress(ctx context.Context, userID int64) (*domain.ProgressRecord, error) {
	var rec domain.ProgressRecord
	ok, err := s.get(ctx, "progress", "user_id", userID, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) PutProgress(ctx context.Context, rec *domain.ProgressRecord) error {
	return s.put(ctx, "progress", "user_id", rec.UserID, rec)
}

func (s *SQLiteStore) AllProgress(ctx context.Context) (map[int64]*domain.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, record FROM progress`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	all := make(map[int64]*domain.ProgressRecord)
	for rows.Next() {
		var userID int64
		var raw string
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, err
		}
		var rec domain.ProgressRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.logger.Warn("skipping corrupt progress record", "user_id", userID, "err", err)
			continue
		}
		all[userID] = &rec
	}
	return all, rows.Err()
}

func (s *SQLiteStore) GetUserTurns(ctx context.Context, userID int64) ([]domain.ConversationTurn, error) {
	var turns []domain.ConversationTurn
	ok, err := s.get(ctx, "user_memories", "user_id", userID, &turns)
	if err != nil || !ok {
		return nil, err
	}
	return turns, nil
}

func (s *SQLiteStore) PutUserTurns(ctx context.Context, userID int64, turns []domain.ConversationTurn) error {
	return s.put(ctx, "user_memories", "user_id", userID, turns)
}

func (s *SQLiteStore) UserTurnKeys(ctx context.Context) ([]int64, error) {
	return s.keys(ctx, "user_memories", "user_id")
}

func (s *SQLiteStore) GetGroupTurns(ctx context.Context, chatID int64) ([]domain.ConversationTurn, error) {
	var turns []domain.ConversationTurn
	ok, err := s.get(ctx, "group_memories", "chat_id", chatID, &turns)
	if err != nil || !ok {
		return nil, err
	}
	return turns, nil
}

func (s *SQLiteStore) PutGroupTurns(ctx context.Context, chatID int64, turns []domain.ConversationTurn) error {
	return s.put(ctx, "group_memories", "chat_id", chatID, turns)
}

func (s *SQLiteStore) GroupTurnKeys(ctx context.Context) ([]int64, error) {
	return s.keys(ctx, "group_memories", "chat_id")
}

// Backup writes a consistent copy of the database to destPath using
// VACUUM INTO, which is safe under WAL.
func (s *SQLiteStore) Backup(ctx context.Context, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("cannot create backup directory: %w", err)
	}
	// VACUUM INTO takes a literal path, not a bound parameter.
	escaped := strings.ReplaceAll(destPath, "'", "''")
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped))
	if err != nil {
		return fmt.Errorf("backup to %s failed: %w", destPath, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
