package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/impulsevault/engine/dbopen"
)

// Schema is the DDL for the SQLite backend: one JSON value per key.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
    k          TEXT PRIMARY KEY,
    v          TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLite is a Store persisted in a local SQLite database. Values are stored
// as JSON, one row per key, so the on-disk shape matches the wire shape the
// dashboard consumes.
type SQLite struct {
	DB *sql.DB
}

// OpenSQLite opens (or creates) the store database at path with the module
// pragmas and schema applied.
func OpenSQLite(path string, opts ...dbopen.Option) (*SQLite, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &SQLite{DB: db}, nil
}

// NewSQLite wraps an already-open database (tests use dbopen.OpenMemory).
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db}
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.DB.Close()
}

// Get reads the requested keys. Missing rows come back as nil fields.
func (s *SQLite) Get(ctx context.Context, keys ...Key) (Record, error) {
	var rec Record
	for _, k := range keys {
		var raw string
		err := s.DB.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, string(k)).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("store: get %s: %w", k, err)
		}

		switch k {
		case KeyPurchaseRecords:
			var v []PurchaseRecord
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return Record{}, fmt.Errorf("store: decode %s: %w", k, err)
			}
			rec.PurchaseRecords = &v
		case KeyUserStats:
			var v UserStats
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return Record{}, fmt.Errorf("store: decode %s: %w", k, err)
			}
			rec.UserStats = &v
		case KeyExtensionEnabled:
			var v bool
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return Record{}, fmt.Errorf("store: decode %s: %w", k, err)
			}
			rec.ExtensionEnabled = &v
		}
	}
	return rec, nil
}

// Set upserts each populated key as one logical operation. No transaction
// spans the keys: the contract promises per-key atomicity only.
func (s *SQLite) Set(ctx context.Context, partial Record) error {
	if partial.PurchaseRecords != nil {
		if err := s.put(ctx, KeyPurchaseRecords, *partial.PurchaseRecords); err != nil {
			return err
		}
	}
	if partial.UserStats != nil {
		if err := s.put(ctx, KeyUserStats, *partial.UserStats); err != nil {
			return err
		}
	}
	if partial.ExtensionEnabled != nil {
		if err := s.put(ctx, KeyExtensionEnabled, *partial.ExtensionEnabled); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) put(ctx context.Context, k Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", k, err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO kv (k, v, updated_at) VALUES (?,?,?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		string(k), string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: put %s: %w", k, err)
	}
	return nil
}
