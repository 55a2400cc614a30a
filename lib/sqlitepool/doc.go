// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite database that holds a peerchat
// installation's local state (identity, nicknames, conversations).
//
// It is a thin layer over zombiezen.com/go/sqlite's sqlitex.Pool that
// applies one set of pragmas to every connection:
//
//   - journal_mode=WAL so the UI can read history while a message is
//     being appended.
//   - synchronous=NORMAL: committed messages survive a process crash.
//   - busy_timeout=5000 so two processes sharing a data directory
//     wait for each other instead of failing with SQLITE_BUSY.
//
// Callers Take a connection, use it from one goroutine, and Put it
// back. Schema setup belongs in Config.OnConnect.
package sqlitepool
