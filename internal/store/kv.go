package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

// ErrStorage marks local persistence failures. Callers are expected to
// swallow and log it; a lost write degrades to stale state, never a crash.
var ErrStorage = errors.New("storage failure")

// Partition names. Each logical key has exactly one writer role even though
// several surfaces read it.
const (
	PartitionAuth      = "auth"
	PartitionSettings  = "settings"
	PartitionCache     = "cache"
	PartitionTileState = "tilestate"
	PartitionWidget    = "widget"
)

// KV is durable, partition-scoped key/value storage shared by every surface.
// There is no cross-key transaction guarantee and none is needed.
type KV interface {
	GetString(partition, key string) (string, bool, error)
	SetString(partition, key, value string) error
	GetInt64(partition, key string) (int64, bool, error)
	SetInt64(partition, key string, value int64) error
	GetBool(partition, key string) (bool, bool, error)
	SetBool(partition, key string, value bool) error
	GetJSON(partition, key string, v interface{}) (bool, error)
	SetJSON(partition, key string, v interface{}) error
	Remove(partition, key string) error
	RemovePartition(partition string) error
}

// SQLiteKV backs KV with a single sqlite database. Surfaces run as separate
// short-lived processes, so the durable file is the only shared state.
type SQLiteKV struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &SQLiteKV{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteKV) Close() error {
	return s.db.Close()
}

func (s *SQLiteKV) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		partition  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (partition, key)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteKV) GetString(partition, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM kv WHERE partition = ? AND key = ?",
		partition, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get %s/%s: %v", ErrStorage, partition, key, err)
	}
	return value, true, nil
}

func (s *SQLiteKV) SetString(partition, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (partition, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		partition, key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", ErrStorage, partition, key, err)
	}
	return nil
}

func (s *SQLiteKV) GetInt64(partition, key string) (int64, bool, error) {
	raw, ok, err := s.GetString(partition, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: parse %s/%s: %v", ErrStorage, partition, key, err)
	}
	return n, true, nil
}

func (s *SQLiteKV) SetInt64(partition, key string, value int64) error {
	return s.SetString(partition, key, strconv.FormatInt(value, 10))
}

func (s *SQLiteKV) GetBool(partition, key string) (bool, bool, error) {
	raw, ok, err := s.GetString(partition, key)
	if err != nil || !ok {
		return false, ok, err
	}
	return raw == "true", true, nil
}

func (s *SQLiteKV) SetBool(partition, key string, value bool) error {
	return s.SetString(partition, key, strconv.FormatBool(value))
}

func (s *SQLiteKV) GetJSON(partition, key string, v interface{}) (bool, error) {
	raw, ok, err := s.GetString(partition, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("%w: decode %s/%s: %v", ErrStorage, partition, key, err)
	}
	return true, nil
}

func (s *SQLiteKV) SetJSON(partition, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s/%s: %v", ErrStorage, partition, key, err)
	}
	return s.SetString(partition, key, string(raw))
}

func (s *SQLiteKV) Remove(partition, key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE partition = ? AND key = ?", partition, key)
	if err != nil {
		return fmt.Errorf("%w: remove %s/%s: %v", ErrStorage, partition, key, err)
	}
	return nil
}

func (s *SQLiteKV) RemovePartition(partition string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE partition = ?", partition)
	if err != nil {
		return fmt.Errorf("%w: remove partition %s: %v", ErrStorage, partition, err)
	}
	return nil
}
