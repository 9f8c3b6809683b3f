package backend

import (
	"context"
	"fmt"

	"casa/internal/cache"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/storage"
	"casa/internal/store"
	"casa/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	persons, stopCache := f.cachePersons(repo.Persons(), config)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"person_cache", config.PersonCacheSize)

	return &BackendResult{
		Cycles:  repo.Cycles(persons),
		Persons: persons,
		Cleanup: func() error {
			stopCache()
			return repo.Close()
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	s := memory.New()
	if config.SeedDirectory != "" {
		var err error
		s, err = memory.NewFromSeed(ctx, config.SeedDirectory)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
	}

	persons, stopCache := f.cachePersons(s.Persons(), config)

	f.logger.Info("Initialized memory backend", "seed_directory", config.SeedDirectory)

	return &BackendResult{
		Cycles:  s.Cycles(persons),
		Persons: persons,
		Cleanup: func() error {
			stopCache()
			return nil
		},
	}, nil
}

// cachePersons wraps next in an LRU cache when enabled. The returned func
// stops the cache's cleanup routine.
func (f *DefaultFactory) cachePersons(next store.PersonStore, config Config) (store.PersonStore, func()) {
	if config.PersonCacheSize <= 0 {
		return next, func() {}
	}

	lru := cache.NewLRUCache[core.Person](config.PersonCacheSize, config.PersonCacheTTL)
	manager := cache.NewManager(f.logger)
	manager.Register(lru)
	manager.StartCleanup(config.PersonCacheTTL)

	return store.NewCachedPersonStore(next, lru), manager.Stop
}
