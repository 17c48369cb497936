package content

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLiteStore is a Repository persisted in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, kind Kind, id string) (Definition, error) {
	if err := ctx.Err(); err != nil {
		return Definition{}, err
	}
	def := Definition{Kind: kind, ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM definitions WHERE kind = ? AND id = ?`,
		string(kind), id,
	).Scan(&def.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return Definition{}, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("get %s %q: %w", kind, id, err)
	}
	return def, nil
}

// GetAll returns every definition of kind sorted by id.
func (s *SQLiteStore) GetAll(ctx context.Context, kind Kind) ([]Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM definitions WHERE kind = ? ORDER BY id`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()
	var out []Definition
	for rows.Next() {
		def := Definition{Kind: kind}
		if err := rows.Scan(&def.ID, &def.Body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		out = append(out, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// Save inserts or replaces a definition.
func (s *SQLiteStore) Save(ctx context.Context, def Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkDefinition(def); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO definitions (kind, id, body, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(def.Kind), def.ID, def.Body, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save %s %q: %w", def.Kind, def.ID, err)
	}
	return nil
}

// Import copies every definition in src into s.
func (s *SQLiteStore) Import(ctx context.Context, src Repository) (int, error) {
	n := 0
	for _, k := range Kinds {
		defs, err := src.GetAll(ctx, k)
		if err != nil {
			return n, err
		}
		for _, def := range defs {
			if err := s.Save(ctx, def); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
