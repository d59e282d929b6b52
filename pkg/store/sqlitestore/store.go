// Package sqlitestore persists story characters in SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-story/model"
	"github.com/goliatone/go-story/pkg/store"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps one row per character plus one row per relation link. It
// applies the same autosave rules as store.MemoryStore.
type Store struct {
	db    *sql.DB
	graph store.Graph
	now   func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithValidator replaces model.Validate as the validation source.
func WithValidator(fn store.ValidateFunc) Option {
	return func(s *Store) {
		s.graph.Validate = fn
	}
}

// Open opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	s.graph.Backend = s
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists e and its unsaved relations.
func (s *Store) Save(ctx context.Context, e *model.Entity) error {
	return s.graph.Save(ctx, e)
}

// Delete removes e and every link touching it.
func (s *Store) Delete(ctx context.Context, e *model.Entity) error {
	return s.graph.Delete(ctx, e)
}

// Validate lists the names of e's invalid attributes.
func (s *Store) Validate(ctx context.Context, e *model.Entity) []string {
	return s.graph.Invalid(ctx, e)
}

// Write upserts the character row and replaces its outgoing links.
func (s *Store) Write(ctx context.Context, e *model.Entity) (string, error) {
	id := e.ID()
	if !e.Persisted() || id == "" {
		next, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		id = next.String()
	}
	attrs, err := json.Marshal(e.Attributes())
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO characters (id, kind, attributes, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
		id, e.Kind(), string(attrs), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE from_id = ?`, id); err != nil {
		return "", err
	}
	links := store.Links(e)
	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for pos, target := range links[name] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO links (from_id, relation, to_id, position) VALUES (?, ?, ?, ?)`,
				id, name, target, pos)
			if err != nil {
				return "", err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Remove deletes the character row and its links.
func (s *Store) Remove(ctx context.Context, e *model.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, e.ID())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE from_id = ? OR to_id = ?`, e.ID(), e.ID()); err != nil {
		return err
	}
	return tx.Commit()
}

// Load reads the record stored under id.
func (s *Store) Load(ctx context.Context, id string) (store.Record, error) {
	var (
		record    store.Record
		attrs     string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, attributes, updated_at FROM characters WHERE id = ?`, id).
		Scan(&record.ID, &record.Kind, &attrs, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Record{}, store.ErrNotFound
	}
	if err != nil {
		return store.Record{}, err
	}
	if err := json.Unmarshal([]byte(attrs), &record.Attributes); err != nil {
		return store.Record{}, fmt.Errorf("decode attributes: %w", err)
	}
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT relation, to_id FROM links WHERE from_id = ? ORDER BY relation, position`, id)
	if err != nil {
		return store.Record{}, err
	}
	defer rows.Close()
	record.Links = map[string][]string{}
	for rows.Next() {
		var relation, target string
		if err := rows.Scan(&relation, &target); err != nil {
			return store.Record{}, err
		}
		record.Links[relation] = append(record.Links[relation], target)
	}
	return record, rows.Err()
}

// Count returns the number of characters of kind, or of every kind when kind
// is empty.
func (s *Store) Count(ctx context.Context, kind string) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters WHERE kind = ?`, kind).Scan(&n)
	}
	return n, err
}
