package store

import (
	"context"

	"casa/internal/cache"
	"casa/internal/core"
)

// CachedPersonStore is a read-through cache in front of a PersonStore.
// Only found persons are cached so a person saved elsewhere is picked up
// on the next lookup.
type CachedPersonStore struct {
	next  PersonStore
	cache cache.Cache[core.Person]
}

func NewCachedPersonStore(next PersonStore, c cache.Cache[core.Person]) *CachedPersonStore {
	return &CachedPersonStore{next: next, cache: c}
}

func (s *CachedPersonStore) Save(ctx context.Context, p core.Person) error {
	if err := s.next.Save(ctx, p); err != nil {
		return err
	}
	s.cache.Set(p.Name, p)
	return nil
}

func (s *CachedPersonStore) Get(ctx context.Context, name string) (*core.Person, error) {
	if p, ok := s.cache.Get(name); ok {
		return &p, nil
	}
	p, err := s.next.Get(ctx, name)
	if err != nil || p == nil {
		return p, err
	}
	s.cache.Set(name, *p)
	return p, nil
}

func (s *CachedPersonStore) List(ctx context.Context) ([]core.Person, error) {
	return s.next.List(ctx)
}
