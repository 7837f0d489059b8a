// Package kv provides the persistent key-value storage behind the client
// session: string keys to string values, kept until explicitly removed.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownDriver = errors.New("kv: unknown driver")
	ErrClosed        = errors.New("kv: storage closed")
)

// Storage is the local-storage contract used by the session store.
type Storage interface {
	// GetItem returns the stored value and whether the key exists.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	// RemoveItem deletes key; removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options configures Open.
type Options struct {
	Driver string
	DSN    string
	// Prefix namespaces redis keys; other drivers ignore it.
	Prefix string
}

// Open returns the storage backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "sqlite3", "":
		return OpenSQLite(ctx, opts.DSN)
	case DriverPostgres, "pg", "pgx":
		return OpenPostgres(ctx, opts.DSN)
	case DriverRedis:
		return OpenRedis(ctx, opts.DSN, opts.Prefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
