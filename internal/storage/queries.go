package storage

import (
	"context"
	"database/sql"
	"errors"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const upsertPerson = `
INSERT INTO persons (name) VALUES (?)
ON CONFLICT(name) DO NOTHING
`

func (q *Queries) UpsertPerson(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, upsertPerson, name)
	return err
}

const getPerson = `SELECT name FROM persons WHERE name = ?`

// GetPerson returns sql.ErrNoRows when the person is unknown.
func (q *Queries) GetPerson(ctx context.Context, name string) (string, error) {
	var out string
	err := q.db.QueryRowContext(ctx, getPerson, name).Scan(&out)
	return out, err
}

const listPersons = `SELECT name FROM persons ORDER BY rowid`

func (q *Queries) ListPersons(ctx context.Context) ([]string, error) {
	return q.strings(ctx, listPersons)
}

const upsertCycle = `
INSERT INTO cycles (start_date, end_date, document, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(start_date) DO UPDATE SET
    end_date = excluded.end_date,
    document = excluded.document,
    updated_at = CURRENT_TIMESTAMP
`

type UpsertCycleParams struct {
	StartDate string
	EndDate   sql.NullString
	Document  string
}

func (q *Queries) UpsertCycle(ctx context.Context, arg UpsertCycleParams) error {
	_, err := q.db.ExecContext(ctx, upsertCycle, arg.StartDate, arg.EndDate, arg.Document)
	return err
}

const latestCycleOnOrBefore = `
SELECT document FROM cycles
WHERE start_date <= ?
ORDER BY start_date DESC
LIMIT 1
`

// LatestCycleOnOrBefore returns sql.ErrNoRows when no cycle starts on or before date.
func (q *Queries) LatestCycleOnOrBefore(ctx context.Context, date string) (string, error) {
	var document string
	err := q.db.QueryRowContext(ctx, latestCycleOnOrBefore, date).Scan(&document)
	return document, err
}

const listCycleStartDates = `SELECT start_date FROM cycles ORDER BY start_date`

func (q *Queries) ListCycleStartDates(ctx context.Context) ([]string, error) {
	return q.strings(ctx, listCycleStartDates)
}

func (q *Queries) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
