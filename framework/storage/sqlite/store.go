// Package sqlite keeps the event log in a single SQLite table keyed by
// (partition, sequence).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `CREATE TABLE IF NOT EXISTS events (
	partition TEXT NOT NULL,
	sequence  INTEGER NOT NULL,
	name      TEXT NOT NULL,
	hash      TEXT NOT NULL,
	time      TEXT NOT NULL,
	payload   BLOB NOT NULL,
	PRIMARY KEY (partition, sequence)
)`

type Error struct {
	Op  string
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("sqlitestore: op: %q err: %q", e.Op, e.Err)
}

type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, Error{"open", errors.New("storage path is required")}
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, Error{"open", err}
	}
	// One writer at a time, SQLite would serialize them anyway.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, Error{"ping", err}
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, Error{"migrate", err}
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Append(ctx context.Context, partition retro.PartitionName, expected int, recs ...storage.Record) error {
	if err := storage.CheckAppend(partition, expected, recs); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Error{"begin", err}
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE partition = ?`, partition.String()).Scan(&current)
	if err != nil {
		return Error{"count", err}
	}
	if current != expected {
		return storage.ErrConcurrentWrite
	}

	for _, rec := range recs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (partition, sequence, name, hash, time, payload) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.Partition.String(),
			rec.Sequence,
			rec.Name,
			rec.Hash,
			rec.Time.UTC().Format(time.RFC3339Nano),
			rec.Payload,
		)
		if isPrimaryKeyViolation(err) {
			return storage.ErrConcurrentWrite
		}
		if err != nil {
			return Error{"insert", err}
		}
	}

	if err := tx.Commit(); err != nil {
		return Error{"commit", err}
	}
	return nil
}

func (s *Store) Load(ctx context.Context, partition retro.PartitionName) ([]storage.Record, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT sequence, name, hash, time, payload FROM events WHERE partition = ? ORDER BY sequence`,
		partition.String(),
	)
	if err != nil {
		return nil, Error{"query", err}
	}
	defer rows.Close()

	var recs []storage.Record
	for rows.Next() {
		var (
			rec = storage.Record{Partition: partition}
			ts  string
		)
		if err := rows.Scan(&rec.Sequence, &rec.Name, &rec.Hash, &ts, &rec.Payload); err != nil {
			return nil, Error{"scan", err}
		}
		if rec.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, Error{"parse-time", err}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, Error{"rows", err}
	}
	return recs, nil
}

func (s *Store) Partitions(ctx context.Context) ([]retro.PartitionName, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT DISTINCT partition FROM events ORDER BY partition`)
	if err != nil {
		return nil, Error{"query", err}
	}
	defer rows.Close()

	var names []retro.PartitionName
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, Error{"scan", err}
		}
		names = append(names, retro.PartitionName(name))
	}
	if err := rows.Err(); err != nil {
		return nil, Error{"rows", err}
	}
	return names, nil
}

func isPrimaryKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
