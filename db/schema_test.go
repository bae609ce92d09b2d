// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSchemaDialects(t *testing.T) {
	pg, err := Schema(Postgres)
	if err != nil {
		t.Fatalf("Postgres schema: %v", err)
	}
	if !strings.Contains(pg, "BIGSERIAL") || !strings.Contains(pg, "TIMESTAMPTZ") {
		t.Error("Expected Postgres types in schema")
	}

	lite, err := Schema(SQLite)
	if err != nil {
		t.Fatalf("SQLite schema: %v", err)
	}
	if !strings.Contains(lite, "AUTOINCREMENT") {
		t.Error("Expected SQLite autoincrement in schema")
	}
	if strings.Contains(lite, "{{") {
		t.Error("Unreplaced placeholder in schema")
	}

	if _, err := Schema("mysql"); err == nil {
		t.Error("Expected error for unsupported dialect")
	}
}

func TestCreateSchemaIdempotent(t *testing.T) {
	conn, err := Open(SQLite, "file:"+filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := CreateSchema(conn, SQLite); err != nil {
			t.Fatalf("CreateSchema pass %d: %v", i+1, err)
		}
	}

	for _, table := range []string{"survey", "survey_option", "vote", "vote_selection", "open_response", "survey_like"} {
		var n int
		if err := conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Errorf("Table %s not usable: %v", table, err)
		}
	}
}

func TestSnapshotTxOptions(t *testing.T) {
	if opts := SnapshotTxOptions(SQLite); opts == nil || !opts.ReadOnly {
		t.Errorf("Expected read-only options for SQLite, got %+v", opts)
	}
	opts := SnapshotTxOptions(Postgres)
	if opts == nil || !opts.ReadOnly {
		t.Error("Expected read-only snapshot options for Postgres")
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		prefix string
	}{
		{"plain file", "file:tally.db", "file:tally.db?_pragma=journal_mode(WAL)&"},
		{"existing query", "file:tally.db?cache=shared", "file:tally.db?cache=shared&_pragma=journal_mode(WAL)&"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqliteDSN(tt.url)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("sqliteDSN(%q) = %q, want prefix %q", tt.url, got, tt.prefix)
			}
			for _, want := range []string{"busy_timeout(5000)", "foreign_keys(1)", "_txlock=immediate"} {
				if !strings.Contains(got, want) {
					t.Errorf("sqliteDSN(%q) missing %s", tt.url, want)
				}
			}
		})
	}
}

func TestSQLiteReadersDoNotBlockWriters(t *testing.T) {
	conn, err := Open(SQLite, "file:"+filepath.Join(t.TempDir(), "wal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	var mode string
	if err := conn.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("Expected WAL journal mode, got %q", mode)
	}

	if _, err := conn.Exec(`CREATE TABLE t (n INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	ctx := t.Context()
	reader, err := conn.BeginTx(ctx, SnapshotTxOptions(SQLite))
	if err != nil {
		t.Fatalf("begin read: %v", err)
	}
	defer reader.Rollback()
	var n int
	if err := reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("read: %v", err)
	}

	writer, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin write while reading: %v", err)
	}
	if _, err := writer.ExecContext(ctx, `INSERT INTO t (n) VALUES (1)`); err != nil {
		t.Fatalf("insert while reading: %v", err)
	}
	if err := writer.Commit(); err != nil {
		t.Fatalf("commit while reading: %v", err)
	}

	// the open reader keeps its snapshot
	if err := reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected reader snapshot to stay at 0 rows, got %d", n)
	}
}

func TestOpenUnsupported(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}
