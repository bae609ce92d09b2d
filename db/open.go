// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the database and verifies the connection.
func Open(dialect, url string) (*sql.DB, error) {
	var driver string
	switch dialect {
	case Postgres:
		driver = "postgres"
	case SQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	if dialect == SQLite {
		url = sqliteDSN(url)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == SQLite {
		conn.SetMaxOpenConns(sqliteMaxConns)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return conn, nil
}

const sqliteMaxConns = 8

// sqliteDSN adds the pragmas every pooled SQLite connection needs. Readers
// run alongside the single writer in WAL mode. Write transactions begin
// IMMEDIATE and wait up to busy_timeout for the write lock; read-only
// transactions keep a deferred BEGIN.
func sqliteDSN(url string) string {
	params := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_txlock=immediate",
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(params, "&")
}

// SnapshotTxOptions returns the transaction options that give a
// read-consistent view on dialect. A read-only SQLite transaction in WAL
// mode sees one snapshot and never blocks writers.
func SnapshotTxOptions(dialect string) *sql.TxOptions {
	if dialect == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return &sql.TxOptions{ReadOnly: true}
}
