package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"casa/internal/core"
	"casa/internal/cycle"
	"casa/internal/store"
)

var (
	_ store.PersonStore = (*PersonRepository)(nil)
	_ store.CycleStore  = (*CycleRepository)(nil)
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "casa.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPersonRepository(t *testing.T) {
	ctx := context.Background()
	persons := newRepo(t).Persons()

	for _, name := range []string{"Bia", "Ana", "Bia"} {
		if err := persons.Save(ctx, core.Person{Name: name}); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if err := persons.Save(ctx, core.Person{}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	p, err := persons.Get(ctx, "Ana")
	if err != nil || p == nil || p.Name != "Ana" {
		t.Fatalf("Get(Ana) = %v, %v", p, err)
	}
	if p, err := persons.Get(ctx, "ana"); err != nil || p != nil {
		t.Fatalf("names are case-sensitive: got %v, %v", p, err)
	}

	list, err := persons.List(ctx)
	if err != nil || len(list) != 2 || list[0].Name != "Bia" || list[1].Name != "Ana" {
		t.Fatalf("List() = %v, %v", list, err)
	}
}

func TestCycleRepository(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	persons := repo.Persons()
	cycles := repo.Cycles(persons)
	ana := core.Person{Name: "Ana"}
	if err := persons.Save(ctx, ana); err != nil {
		t.Fatalf("save person: %v", err)
	}

	if c, err := cycles.Load(ctx, core.NewDate(2024, 3, 1)); err != nil || c != nil {
		t.Fatalf("empty store Load = %v, %v", c, err)
	}

	march := cycle.New(core.NewDate(2024, 3, 1))
	march.AddContributor(ana)
	march.AddIncome("Ana", core.Income{Name: "salary", Amount: core.Money{Cents: 9999}, Recurring: true})
	if err := cycles.Save(ctx, march); err != nil {
		t.Fatalf("save march: %v", err)
	}

	// Last writer wins on the same start date.
	march.AddIncome("Ana", core.Income{Name: "bonus", Amount: core.Money{Cents: 1}})
	march.Close(core.NewDate(2024, 4, 1))
	if err := cycles.Save(ctx, march); err != nil {
		t.Fatalf("resave march: %v", err)
	}
	april := cycle.FromPrevious(march, core.NewDate(2024, 4, 1))
	if err := cycles.Save(ctx, april); err != nil {
		t.Fatalf("save april: %v", err)
	}

	dates, err := cycles.StartDates(ctx)
	if err != nil || len(dates) != 2 || dates[0].String() != "2024-03-01" || dates[1].String() != "2024-04-01" {
		t.Fatalf("StartDates() = %v, %v", dates, err)
	}

	got, err := cycles.Load(ctx, core.NewDate(2024, 3, 20))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Start().String() != "2024-03-01" || !got.Closed() || len(got.IncomesOf(ana)) != 2 {
		t.Fatalf("unexpected march: %+v", got.Records())
	}
	got, _ = cycles.Load(ctx, core.NewDate(2030, 1, 1))
	if got.Start().String() != "2024-04-01" || got.Closed() || len(got.IncomesOf(ana)) != 1 {
		t.Fatalf("unexpected april: %+v", got.Records())
	}
}

func TestCycleRepositoryUnknownPerson(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	cycles := repo.Cycles(repo.Persons())

	c := cycle.New(core.NewDate(2024, 3, 1))
	c.AddDependent(core.Person{Name: "Ghost"})
	if err := cycles.Save(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := cycles.Load(ctx, core.NewDate(2024, 3, 1)); !errors.Is(err, store.ErrUnknownPerson) {
		t.Fatalf("expected ErrUnknownPerson, got %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casa.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}
