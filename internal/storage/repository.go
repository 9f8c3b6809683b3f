// Package storage is the SQLite backend of the household stores. Cycles are
// kept as JSON documents keyed by start date; persons as one row per name.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"casa/internal/core"
	"casa/internal/cycle"
	"casa/internal/store"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Persons returns the person table as a store.PersonStore.
func (r *SQLiteRepository) Persons() *PersonRepository {
	return &PersonRepository{queries: r.queries}
}

// Cycles returns the cycle table as a store.CycleStore resolving names
// against persons.
func (r *SQLiteRepository) Cycles(persons store.PersonStore) *CycleRepository {
	return &CycleRepository{queries: r.queries, persons: persons}
}

type PersonRepository struct {
	queries *Queries
}

func (r *PersonRepository) Save(ctx context.Context, p core.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertPerson(ctx, p.Name); err != nil {
		return fmt.Errorf("save person %q: %w", p.Name, err)
	}
	slog.DebugContext(ctx, "Person saved to SQLite", "person", p.Name)
	return nil
}

func (r *PersonRepository) Get(ctx context.Context, name string) (*core.Person, error) {
	got, err := r.queries.GetPerson(ctx, name)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get person %q: %w", name, err)
	}
	return &core.Person{Name: got}, nil
}

func (r *PersonRepository) List(ctx context.Context) ([]core.Person, error) {
	names, err := r.queries.ListPersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	out := make([]core.Person, 0, len(names))
	for _, n := range names {
		out = append(out, core.Person{Name: n})
	}
	return out, nil
}

type CycleRepository struct {
	queries *Queries
	persons store.PersonStore
}

// Save writes the cycle, replacing any stored cycle with the same start date.
func (r *CycleRepository) Save(ctx context.Context, c *cycle.Cycle) error {
	doc, err := store.EncodeCycle(c)
	if err != nil {
		return err
	}
	params := UpsertCycleParams{StartDate: c.Start().String(), Document: string(doc)}
	if end, ok := c.End(); ok {
		params.EndDate = sql.NullString{String: end.String(), Valid: true}
	}
	if err := r.queries.UpsertCycle(ctx, params); err != nil {
		return fmt.Errorf("save cycle %s: %w", params.StartDate, err)
	}
	slog.InfoContext(ctx, "Cycle saved to SQLite",
		"cycle_start", params.StartDate,
		"closed", params.EndDate.Valid,
		"people", len(c.People()))
	return nil
}

func (r *CycleRepository) Load(ctx context.Context, onOrBefore core.Date) (*cycle.Cycle, error) {
	doc, err := r.queries.LatestCycleOnOrBefore(ctx, onOrBefore.String())
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cycle on or before %s: %w", onOrBefore, err)
	}
	return store.DecodeCycle(ctx, []byte(doc), r.persons)
}

func (r *CycleRepository) StartDates(ctx context.Context) ([]core.Date, error) {
	raw, err := r.queries.ListCycleStartDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycle start dates: %w", err)
	}
	dates := make([]core.Date, 0, len(raw))
	for _, s := range raw {
		d, err := core.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("cycle index: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}
