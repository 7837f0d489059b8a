package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS client_storage (
	item_key   TEXT PRIMARY KEY,
	item_value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQL stores items in a client_storage table. The same queries run on
// sqlite and postgres; sqlx rebinds placeholders for the driver in use.
type SQL struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) a sqlite database file.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("kv: sqlite path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("kv: create storage dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and avoids
	// SQLITE_BUSY on the file backend.
	db.SetMaxOpenConns(1)
	return newSQL(ctx, db)
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("kv: postgres DSN is required")
	}
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return newSQL(ctx, db)
}

// NewSQL wraps an existing handle; driverName selects the placeholder style.
func NewSQL(ctx context.Context, db *sql.DB, driverName string) (*SQL, error) {
	return newSQL(ctx, sqlx.NewDb(db, driverName))
}

func newSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	s := &SQL{db: db, now: time.Now}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: migrate: %w", err)
	}
	return s, nil
}

func (s *SQL) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	q := s.db.Rebind(`SELECT item_value FROM client_storage WHERE item_key = ?`)
	err := s.db.GetContext(ctx, &value, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQL) SetItem(ctx context.Context, key, value string) error {
	q := s.db.Rebind(`INSERT INTO client_storage (item_key, item_value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, q, key, value, s.now().UTC()); err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

func (s *SQL) RemoveItem(ctx context.Context, key string) error {
	q := s.db.Rebind(`DELETE FROM client_storage WHERE item_key = ?`)
	if _, err := s.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("kv: remove %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
