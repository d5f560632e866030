// Package ledgerstore persists a ledger in a single SQLite file. It
// implements the moneyman.Store contract with the same semantics as the
// in-memory store: atomic batches, one change set per mutation, and
// disposal on close.
package ledgerstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/aarnott/moneyman"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaVersion is the newest migration this build knows about. A file
// migrated further by a newer build is refused rather than misread.
const schemaVersion = 1

// SQLiteStore is a moneyman.Store backed by one SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger

	subs    map[int]func(moneyman.ChangeSet)
	nextSub int

	disposed bool
}

// Option configures an SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger routes the store's diagnostics to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// Open opens or creates a ledger file and brings its schema up to date.
// Pass ":memory:" for a throwaway database.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:   db,
		log:  slog.Default(),
		subs: make(map[int]func(moneyman.ChangeSet)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	s.log.Info("ledger opened", slog.String("path", path), slog.Int("schema", schemaVersion))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	// refuse files written by a newer build before touching anything
	var current int
	err := s.db.QueryRow(`SELECT version FROM schema_migrations LIMIT 1`).Scan(&current)
	if err == nil && current > schemaVersion {
		return fmt.Errorf("ledger schema is version %d, this build understands up to %d: %w",
			current, schemaVersion, moneyman.ErrFutureSchema)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	if current < schemaVersion {
		s.log.Info("schema migrated", slog.Int("from", current), slog.Int("to", schemaVersion))
	}
	return nil
}

// Close disposes the store. Every subsequent operation fails with
// moneyman.ErrStoreDisposed.
func (s *SQLiteStore) Close() error {
	if s.disposed {
		return moneyman.ErrStoreDisposed
	}
	s.disposed = true
	return s.db.Close()
}

// Subscribe registers an observer of committed change sets.
func (s *SQLiteStore) Subscribe(fn func(moneyman.ChangeSet)) (cancel func()) {
	if s.disposed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *SQLiteStore) notify(cs moneyman.ChangeSet) {
	if cs.Empty() {
		return
	}
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fn(cs)
		}
	}
}

// Apply runs all mutations of the batch inside one SQL transaction and
// emits a single change set.
func (s *SQLiteStore) Apply(b *moneyman.Batch) error {
	if s.disposed {
		return moneyman.ErrStoreDisposed
	}
	if b == nil || b.Empty() {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	var cs moneyman.ChangeSet
	for _, m := range b.Mutations() {
		if err := s.applyMutation(tx, &cs, m); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notify(cs)
	return nil
}

func (s *SQLiteStore) applyOne(op moneyman.Op, e moneyman.Entity) error {
	var b moneyman.Batch
	switch op {
	case moneyman.OpInsert:
		b.Insert(e)
	case moneyman.OpUpdate:
		b.Update(e)
	case moneyman.OpInsertOrReplace:
		b.InsertOrReplace(e)
	case moneyman.OpDelete:
		b.Delete(e)
	}
	return s.Apply(&b)
}

func (s *SQLiteStore) Insert(e moneyman.Entity) error { return s.applyOne(moneyman.OpInsert, e) }
func (s *SQLiteStore) Update(e moneyman.Entity) error { return s.applyOne(moneyman.OpUpdate, e) }
func (s *SQLiteStore) InsertOrReplace(e moneyman.Entity) error {
	return s.applyOne(moneyman.OpInsertOrReplace, e)
}
func (s *SQLiteStore) Delete(e moneyman.Entity) error { return s.applyOne(moneyman.OpDelete, e) }

func (s *SQLiteStore) InsertAll(es ...moneyman.Entity) error {
	var b moneyman.Batch
	b.Insert(es...)
	return s.Apply(&b)
}

func (s *SQLiteStore) applyMutation(tx *sql.Tx, cs *moneyman.ChangeSet, m moneyman.Mutation) error {
	e := m.Entity
	if e == nil {
		return fmt.Errorf("nil entity in mutation: %w", moneyman.ErrInvalidArgument)
	}
	if !moneyman.IsPersisted(e.EntityID()) {
		return fmt.Errorf("%s without id: %w", e.EntityKind(), moneyman.ErrInvalidArgument)
	}
	before, exists, err := fetch(tx, e.EntityKind(), e.EntityID())
	if err != nil {
		return err
	}
	switch m.Op {
	case moneyman.OpInsert:
		if exists {
			return fmt.Errorf("insert %s %s: id already exists: %w", e.EntityKind(), e.EntityID(), moneyman.ErrInvalidArgument)
		}
		if err := put(tx, e, false); err != nil {
			return err
		}
		cs.Inserted = append(cs.Inserted, e)
	case moneyman.OpUpdate:
		if !exists {
			return fmt.Errorf("update %s %s: %w", e.EntityKind(), e.EntityID(), moneyman.ErrNotFound)
		}
		if err := put(tx, e, true); err != nil {
			return err
		}
		cs.Updated = append(cs.Updated, moneyman.Updated{Before: before, After: e})
	case moneyman.OpInsertOrReplace:
		if err := put(tx, e, exists); err != nil {
			return err
		}
		if exists {
			cs.Updated = append(cs.Updated, moneyman.Updated{Before: before, After: e})
		} else {
			cs.Inserted = append(cs.Inserted, e)
		}
	case moneyman.OpDelete:
		if !exists {
			return fmt.Errorf("delete %s %s: %w", e.EntityKind(), e.EntityID(), moneyman.ErrNotFound)
		}
		if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", tableOf(e.EntityKind())), e.EntityID().String()); err != nil {
			return err
		}
		cs.Deleted = append(cs.Deleted, before)
	default:
		return fmt.Errorf("unknown mutation op %d: %w", m.Op, moneyman.ErrInvalidArgument)
	}
	return nil
}

var _ moneyman.Store = (*SQLiteStore)(nil)
