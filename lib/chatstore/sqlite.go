// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/peerchat/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID;
`

var _ KV = (*SQLiteKV)(nil)

// SQLiteKV is a KV backed by a single SQLite table.
type SQLiteKV struct {
	pool *sqlitepool.Pool
}

// OpenSQLite opens (creating if needed) the state database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteKV, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, err
	}
	return &SQLiteKV{pool: pool}, nil
}

// Close closes the underlying pool.
func (s *SQLiteKV) Close() error {
	return s.pool.Close()
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, false, err
	}
	defer s.pool.Put(conn)

	value, found, err := getValue(conn, key)
	if err != nil {
		return nil, false, fmt.Errorf("reading %q: %w", key, err)
	}
	return value, found, nil
}

func (s *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := putValue(conn, key, value); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// Update runs the read-modify-write inside an immediate transaction,
// so a concurrent writer cannot interleave between the read and the
// write.
func (s *SQLiteKV) Update(ctx context.Context, key string, modify func([]byte, bool) ([]byte, error)) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("beginning update of %q: %w", key, err)
	}
	defer endTransaction(&err)

	current, found, err := getValue(conn, key)
	if err != nil {
		return fmt.Errorf("reading %q: %w", key, err)
	}
	next, err := modify(current, found)
	if err != nil {
		return err
	}
	if err := putValue(conn, key, next); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var keys []string
	err = sqlitex.Execute(conn,
		"SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key",
		&sqlitex.ExecOptions{
			Args: []any{len(prefix), prefix},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				keys = append(keys, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("listing keys with prefix %q: %w", prefix, err)
	}
	return keys, nil
}

func getValue(conn *sqlite.Conn, key string) ([]byte, bool, error) {
	var value []byte
	found := false
	err := sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, value)
			found = true
			return nil
		},
	})
	return value, found, err
}

func putValue(conn *sqlite.Conn, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return sqlitex.Execute(conn,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		&sqlitex.ExecOptions{Args: []any{key, value}})
}
