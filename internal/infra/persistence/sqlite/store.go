// Package sqlite persists the transactional in-memory store to a local SQLite
// database. Each committed change set is written in a single SQL transaction
// before the in-memory state is swapped, so the database and the visible state
// never diverge.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"sizes/internal/infra/persistence/memory"
	"sizes/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var (
	_ domain.PersistentStore = (*Store)(nil)
	_ domain.PreferenceStore = (*Store)(nil)
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "sizes.db"

// Store embeds the memory store and mirrors every commit into SQLite.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		id TEXT PRIMARY KEY,
		profile_id TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS brands_profile_id ON brands(profile_id)`,
	`CREATE TABLE IF NOT EXISTS sizes (
		id TEXT PRIMARY KEY,
		brand_id TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sizes_brand_id ON sizes(brand_id)`,
	`CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// NewStore opens (or creates) the database at path and hydrates the
// in-memory state from it.
func NewStore(path string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps writes serialized and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	s := &Store{db: db, path: path}
	opts = append(opts, memory.WithCommitHook(s.persist))
	s.Store = memory.NewStore(engine, opts...)
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	snapshot := memory.Snapshot{
		Profiles: map[string]domain.Profile{},
		Brands:   map[string]domain.Brand{},
		Sizes:    map[string]domain.Size{},
	}
	if err := scanPayloads(ctx, s.db, "profiles", func(payload []byte) error {
		var p domain.Profile
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		snapshot.Profiles[p.ID] = p
		return nil
	}); err != nil {
		return err
	}
	if err := scanPayloads(ctx, s.db, "brands", func(payload []byte) error {
		var b domain.Brand
		if err := json.Unmarshal(payload, &b); err != nil {
			return err
		}
		snapshot.Brands[b.ID] = b
		return nil
	}); err != nil {
		return err
	}
	if err := scanPayloads(ctx, s.db, "sizes", func(payload []byte) error {
		var sz domain.Size
		if err := json.Unmarshal(payload, &sz); err != nil {
			return err
		}
		snapshot.Sizes[sz.ID] = sz
		return nil
	}); err != nil {
		return err
	}
	s.ImportState(snapshot)
	return nil
}

func scanPayloads(ctx context.Context, db *sql.DB, table string, decode func([]byte) error) error {
	rows, err := db.QueryContext(ctx, `SELECT payload FROM `+table) //nolint:gosec // table names are constants
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		if err := decode(payload); err != nil {
			return fmt.Errorf("decode %s: %w", table, err)
		}
	}
	return rows.Err()
}

// persist writes the final state of every touched record. Records absent
// from the next view were deleted within the transaction.
func (s *Store) persist(ctx context.Context, changes []domain.Change, next domain.TransactionView) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, change := range changes {
		if change.Action == domain.ActionReplace {
			if err := replaceAll(ctx, tx, next); err != nil {
				return err
			}
			continue
		}
		if err := writeRecord(ctx, tx, change.Entity, change.ID, next); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func writeRecord(ctx context.Context, tx *sql.Tx, entity domain.EntityType, id string, next domain.TransactionView) error {
	switch entity {
	case domain.EntityProfile:
		if p, ok := next.FindProfile(id); ok {
			return upsertProfile(ctx, tx, p)
		}
		return deleteRow(ctx, tx, "profiles", id)
	case domain.EntityBrand:
		if b, ok := next.FindBrand(id); ok {
			return upsertBrand(ctx, tx, b)
		}
		return deleteRow(ctx, tx, "brands", id)
	case domain.EntitySize:
		if sz, ok := next.FindSize(id); ok {
			return upsertSize(ctx, tx, sz)
		}
		return deleteRow(ctx, tx, "sizes", id)
	}
	return fmt.Errorf("unknown entity %q", entity)
}

func replaceAll(ctx context.Context, tx *sql.Tx, next domain.TransactionView) error {
	for _, table := range []string{"sizes", "brands", "profiles"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil { //nolint:gosec // constant table names
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	for _, p := range next.ListProfiles() {
		if err := upsertProfile(ctx, tx, p); err != nil {
			return err
		}
	}
	for _, b := range next.ListBrands() {
		if err := upsertBrand(ctx, tx, b); err != nil {
			return err
		}
	}
	for _, sz := range next.ListSizes() {
		if err := upsertSize(ctx, tx, sz); err != nil {
			return err
		}
	}
	return nil
}

func upsertProfile(ctx context.Context, tx *sql.Tx, p domain.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles(id,payload) VALUES(?,?) ON CONFLICT(id) DO UPDATE SET payload=excluded.payload`, p.ID, data); err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.ID, err)
	}
	return nil
}

func upsertBrand(ctx context.Context, tx *sql.Tx, b domain.Brand) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode brand %s: %w", b.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO brands(id,profile_id,payload) VALUES(?,?,?) ON CONFLICT(id) DO UPDATE SET profile_id=excluded.profile_id, payload=excluded.payload`, b.ID, b.ProfileID, data); err != nil {
		return fmt.Errorf("upsert brand %s: %w", b.ID, err)
	}
	return nil
}

func upsertSize(ctx context.Context, tx *sql.Tx, sz domain.Size) error {
	data, err := json.Marshal(sz)
	if err != nil {
		return fmt.Errorf("encode size %s: %w", sz.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sizes(id,brand_id,payload) VALUES(?,?,?) ON CONFLICT(id) DO UPDATE SET brand_id=excluded.brand_id, payload=excluded.payload`, sz.ID, sz.BrandID, data); err != nil {
		return fmt.Errorf("upsert size %s: %w", sz.ID, err)
	}
	return nil
}

func deleteRow(ctx context.Context, tx *sql.Tx, table, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id); err != nil { //nolint:gosec // constant table names
		return fmt.Errorf("delete %s %s: %w", table, id, err)
	}
	return nil
}

// LoadPreferences reads every stored preference.
func (s *Store) LoadPreferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("select preferences: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SavePreference upserts a single preference.
func (s *Store) SavePreference(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO preferences(key,value) VALUES(?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value); err != nil {
		return fmt.Errorf("upsert preference %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
