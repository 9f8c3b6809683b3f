// Package store defines the persistence ports of the household and the
// document format cycles are stored in.
package store

import (
	"context"
	"errors"

	"casa/internal/core"
	"casa/internal/cycle"
)

// ErrUnknownPerson is returned when a stored cycle names a person the
// person store does not know.
var ErrUnknownPerson = errors.New("unknown person")

type (
	// CycleStore persists cycles indexed by start date. Save overwrites any
	// cycle with the same start date.
	CycleStore interface {
		Save(ctx context.Context, c *cycle.Cycle) error
		// Load returns the most recent cycle starting on or before date,
		// or nil when there is none.
		Load(ctx context.Context, onOrBefore core.Date) (*cycle.Cycle, error)
		// StartDates lists every stored start date in ascending order.
		StartDates(ctx context.Context) ([]core.Date, error)
	}

	PersonStore interface {
		Save(ctx context.Context, p core.Person) error
		// Get returns nil when the person is unknown.
		Get(ctx context.Context, name string) (*core.Person, error)
		// List returns every person in the order they were first saved.
		List(ctx context.Context) ([]core.Person, error)
	}
)
