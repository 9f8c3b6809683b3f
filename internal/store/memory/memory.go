// Package memory is an in-process key/value backend: one JSON document per
// key plus a "<prefix>/*" index key per collection.
package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"casa/internal/core"
	"casa/internal/cycle"
	"casa/internal/store"
)

const (
	personsPrefix = "persons/"
	cyclesPrefix  = "cycles/"
	indexSuffix   = "*"
)

type Store struct {
	mu    sync.Mutex
	items map[string]string
}

func New() *Store {
	return &Store{items: make(map[string]string)}
}

// NewFromSeed creates a store holding the persons listed one per line in
// base/seed_persons.txt. A missing file yields an empty store.
func NewFromSeed(ctx context.Context, base string) (*Store, error) {
	s := New()
	persons := s.Persons()
	for _, name := range readLines(filepath.Join(base, "seed_persons.txt")) {
		p, err := core.NewPerson(name)
		if err != nil {
			return nil, fmt.Errorf("seed person %q: %w", name, err)
		}
		if err := persons.Save(ctx, p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Persons returns the person collection of the store.
func (s *Store) Persons() *Persons {
	return &Persons{s: s}
}

// Cycles returns the cycle collection of the store. Names in stored cycles
// are resolved against persons.
func (s *Store) Cycles(persons store.PersonStore) *Cycles {
	return &Cycles{s: s, persons: persons}
}

// Keys returns every key currently held, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Store) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}

// put stores value under key and records key in its collection index.
func (s *Store) put(prefix, id, value string, sorted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.index(prefix)
	if err != nil {
		return err
	}
	index = append(index, id)
	if sorted {
		slices.Sort(index)
	}
	encoded, err := json.Marshal(dedupe(index))
	if err != nil {
		return fmt.Errorf("encode index %s: %w", prefix, err)
	}
	s.items[prefix+id] = value
	s.items[prefix+indexSuffix] = string(encoded)
	return nil
}

func (s *Store) readIndex(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(prefix)
}

// index must be called with mu held.
func (s *Store) index(prefix string) ([]string, error) {
	raw, ok := s.items[prefix+indexSuffix]
	if !ok {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", prefix, err)
	}
	return ids, nil
}

// Persons implements store.PersonStore.
type Persons struct {
	s *Store
}

type personDocument struct {
	Name string `json:"name"`
}

func (p *Persons) Save(_ context.Context, person core.Person) error {
	if err := person.Validate(); err != nil {
		return err
	}
	doc, err := json.Marshal(personDocument{Name: person.Name})
	if err != nil {
		return fmt.Errorf("encode person: %w", err)
	}
	return p.s.put(personsPrefix, person.Name, string(doc), false)
}

func (p *Persons) Get(_ context.Context, name string) (*core.Person, error) {
	raw, ok := p.s.get(personsPrefix + name)
	if !ok {
		return nil, nil
	}
	var doc personDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode person %q: %w", name, err)
	}
	return &core.Person{Name: doc.Name}, nil
}

func (p *Persons) List(ctx context.Context) ([]core.Person, error) {
	names, err := p.s.readIndex(personsPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]core.Person, 0, len(names))
	for _, name := range names {
		person, err := p.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if person != nil {
			out = append(out, *person)
		}
	}
	return out, nil
}

// Cycles implements store.CycleStore.
type Cycles struct {
	s       *Store
	persons store.PersonStore
}

func (c *Cycles) Save(_ context.Context, cy *cycle.Cycle) error {
	doc, err := store.EncodeCycle(cy)
	if err != nil {
		return err
	}
	return c.s.put(cyclesPrefix, cy.Start().String(), string(doc), true)
}

func (c *Cycles) Load(ctx context.Context, onOrBefore core.Date) (*cycle.Cycle, error) {
	dates, err := c.StartDates(ctx)
	if err != nil {
		return nil, err
	}
	i := len(dates) - 1
	for i >= 0 && dates[i].After(onOrBefore) {
		i--
	}
	if i < 0 {
		return nil, nil
	}
	key := dates[i].String()
	raw, ok := c.s.get(cyclesPrefix + key)
	if !ok {
		return nil, fmt.Errorf("cycle %s is indexed but missing", key)
	}
	return store.DecodeCycle(ctx, []byte(raw), c.persons)
}

func (c *Cycles) StartDates(_ context.Context) ([]core.Date, error) {
	ids, err := c.s.readIndex(cyclesPrefix)
	if err != nil {
		return nil, err
	}
	dates := make([]core.Date, 0, len(ids))
	for _, id := range ids {
		d, err := core.ParseDate(id)
		if err != nil {
			return nil, fmt.Errorf("cycle index: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, preserving first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
