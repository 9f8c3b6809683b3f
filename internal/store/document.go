package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"casa/internal/core"
	"casa/internal/cycle"
)

// resolveConcurrency bounds the person lookups made while decoding a cycle.
const resolveConcurrency = 4

type (
	cycleDocument struct {
		Start   string           `json:"start"`
		End     *string          `json:"end"`
		Records []recordDocument `json:"records"`
	}

	recordDocument struct {
		Person    string            `json:"person"`
		Dependent bool              `json:"dependent"`
		Incomes   []incomeDocument  `json:"incomes"`
		Expenses  []expenseDocument `json:"expenses"`
	}

	incomeDocument struct {
		Name             string `json:"name"`
		Amount           int64  `json:"amount"`
		WithheldAtSource bool   `json:"withheldAtSource"`
		Recurring        bool   `json:"recurring"`
	}

	expenseDocument struct {
		Name      string  `json:"name"`
		Amount    int64   `json:"amount"`
		Payer     *string `json:"payer"`
		Recurring bool    `json:"recurring"`
	}
)

// EncodeCycle serializes a cycle with people referenced by name.
func EncodeCycle(c *cycle.Cycle) ([]byte, error) {
	doc := cycleDocument{Start: c.Start().String(), Records: []recordDocument{}}
	if end, ok := c.End(); ok {
		s := end.String()
		doc.End = &s
	}
	for _, r := range c.Records() {
		rd := recordDocument{
			Person:    r.Person.Name,
			Dependent: r.Dependent,
			Incomes:   make([]incomeDocument, 0, len(r.Incomes)),
			Expenses:  make([]expenseDocument, 0, len(r.Expenses)),
		}
		for _, i := range r.Incomes {
			rd.Incomes = append(rd.Incomes, incomeDocument{
				Name:             i.Name,
				Amount:           i.Amount.Cents,
				WithheldAtSource: i.WithheldAtSource,
				Recurring:        i.Recurring,
			})
		}
		for _, e := range r.Expenses {
			ed := expenseDocument{Name: e.Name, Amount: e.Amount.Cents, Recurring: e.Recurring}
			if e.Payer != nil {
				name := e.Payer.Name
				ed.Payer = &name
			}
			rd.Expenses = append(rd.Expenses, ed)
		}
		doc.Records = append(doc.Records, rd)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode cycle %s: %w", doc.Start, err)
	}
	return data, nil
}

// DecodeCycle parses a cycle document and resolves every person it names,
// owners and payers alike, against persons. A name that does not resolve
// fails the whole decode with ErrUnknownPerson; an end not after the start
// or a person recorded twice fails it with the matching cycle error.
func DecodeCycle(ctx context.Context, data []byte, persons PersonStore) (*cycle.Cycle, error) {
	var doc cycleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cycle: %w", err)
	}
	start, err := core.ParseDate(doc.Start)
	if err != nil {
		return nil, fmt.Errorf("decode cycle start: %w", err)
	}
	var end *core.Date
	if doc.End != nil {
		e, err := core.ParseDate(*doc.End)
		if err != nil {
			return nil, fmt.Errorf("decode cycle %s end: %w", doc.Start, err)
		}
		end = &e
	}

	people, err := resolvePeople(ctx, doc, persons)
	if err != nil {
		return nil, fmt.Errorf("decode cycle %s: %w", doc.Start, err)
	}

	records := make([]cycle.Record, 0, len(doc.Records))
	for _, rd := range doc.Records {
		r := cycle.Record{
			Person:    people[rd.Person],
			Dependent: rd.Dependent,
			Incomes:   make([]core.Income, 0, len(rd.Incomes)),
			Expenses:  make([]core.Expense, 0, len(rd.Expenses)),
		}
		for _, i := range rd.Incomes {
			r.Incomes = append(r.Incomes, core.Income{
				Name:             i.Name,
				Amount:           core.Money{Cents: i.Amount},
				WithheldAtSource: i.WithheldAtSource,
				Recurring:        i.Recurring,
			})
		}
		for _, e := range rd.Expenses {
			exp := core.Expense{Name: e.Name, Amount: core.Money{Cents: e.Amount}, Recurring: e.Recurring}
			if e.Payer != nil {
				payer := people[*e.Payer]
				exp.Payer = &payer
			}
			r.Expenses = append(r.Expenses, exp)
		}
		records = append(records, r)
	}
	c, err := cycle.Restore(start, end, records)
	if err != nil {
		return nil, fmt.Errorf("decode cycle %s: %w", doc.Start, err)
	}
	return c, nil
}

func resolvePeople(ctx context.Context, doc cycleDocument, persons PersonStore) (map[string]core.Person, error) {
	var names []string
	seen := map[string]struct{}{}
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, rd := range doc.Records {
		add(rd.Person)
		for _, e := range rd.Expenses {
			if e.Payer != nil {
				add(*e.Payer)
			}
		}
	}

	var mu sync.Mutex
	people := make(map[string]core.Person, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for _, name := range names {
		g.Go(func() error {
			p, err := persons.Get(gctx, name)
			if err != nil {
				return fmt.Errorf("get person %q: %w", name, err)
			}
			if p == nil {
				return fmt.Errorf("%w: %q", ErrUnknownPerson, name)
			}
			mu.Lock()
			people[name] = *p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return people, nil
}
