package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"casa/internal/cache"
	"casa/internal/core"
	"casa/internal/cycle"
)

type fakePersons struct {
	mu     sync.Mutex
	people map[string]core.Person
	gets   int
	err    error
}

func newFakePersons(names ...string) *fakePersons {
	f := &fakePersons{people: map[string]core.Person{}}
	for _, n := range names {
		f.people[n] = core.Person{Name: n}
	}
	return f
}

func (f *fakePersons) Save(_ context.Context, p core.Person) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.people[p.Name] = p
	return nil
}

func (f *fakePersons) Get(_ context.Context, name string) (*core.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.people[name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePersons) List(_ context.Context) ([]core.Person, error) {
	return nil, nil
}

func sampleCycle() *cycle.Cycle {
	ana := core.Person{Name: "Ana"}
	c := cycle.New(core.NewDate(2024, 3, 1))
	c.AddContributor(ana)
	c.AddDependent(core.Person{Name: "Bia"})
	c.AddIncome("Ana", core.Income{Name: "salary", Amount: core.Money{Cents: 9999}, WithheldAtSource: true, Recurring: true})
	c.AddExpense("Ana", core.Expense{Name: "market", Amount: core.Money{Cents: 700}})
	c.AddExpense("Bia", core.Expense{Name: "school", Amount: core.Money{Cents: 300}, Payer: &ana, Recurring: true})
	c.Close(core.NewDate(2024, 4, 1))
	return c
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := sampleCycle()
	data, err := EncodeCycle(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeCycle(context.Background(), data, newFakePersons("Ana", "Bia"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !decoded.Start().Equal(original.Start()) {
		t.Fatalf("start = %s", decoded.Start())
	}
	end, ok := decoded.End()
	if !ok || end.String() != "2024-04-01" {
		t.Fatalf("end = %s, %v", end, ok)
	}
	want, got := original.Records(), decoded.Records()
	if len(got) != len(want) {
		t.Fatalf("records = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Person != want[i].Person || got[i].Dependent != want[i].Dependent {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], want[i])
		}
		if len(got[i].Incomes) != len(want[i].Incomes) || len(got[i].Expenses) != len(want[i].Expenses) {
			t.Fatalf("record %d entries differ: %+v vs %+v", i, got[i], want[i])
		}
		for j := range want[i].Incomes {
			if got[i].Incomes[j] != want[i].Incomes[j] {
				t.Fatalf("income %d/%d = %+v, want %+v", i, j, got[i].Incomes[j], want[i].Incomes[j])
			}
		}
		for j := range want[i].Expenses {
			g, w := got[i].Expenses[j], want[i].Expenses[j]
			if g.Name != w.Name || g.Amount != w.Amount || g.Recurring != w.Recurring || (g.Payer == nil) != (w.Payer == nil) {
				t.Fatalf("expense %d/%d = %+v, want %+v", i, j, g, w)
			}
			if w.Payer != nil && g.Payer.Name != w.Payer.Name {
				t.Fatalf("payer = %s, want %s", g.Payer.Name, w.Payer.Name)
			}
		}
	}
}

func TestEncodeCycleWireFormat(t *testing.T) {
	c := cycle.New(core.NewDate(2024, 3, 1))
	c.AddContributor(core.Person{Name: "Ana"})
	c.AddExpense("Ana", core.Expense{Name: "market", Amount: core.Money{Cents: 700}})

	data, err := EncodeCycle(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"start":"2024-03-01","end":null,"records":[{"person":"Ana","dependent":false,"incomes":[],` +
		`"expenses":[{"name":"market","amount":700,"payer":null,"recurring":false}]}]}`
	if string(data) != want {
		t.Fatalf("encoded\n%s\nwant\n%s", data, want)
	}
}

func TestDecodeCycleUnknownPerson(t *testing.T) {
	data, _ := EncodeCycle(sampleCycle())

	tests := []struct {
		name    string
		persons *fakePersons
	}{
		{"owner missing", newFakePersons("Ana")},
		{"payer missing", newFakePersons("Bia")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCycle(context.Background(), data, tt.persons)
			if !errors.Is(err, ErrUnknownPerson) {
				t.Fatalf("expected ErrUnknownPerson, got %v", err)
			}
		})
	}
}

func TestDecodeCyclePropagatesStoreErrors(t *testing.T) {
	data, _ := EncodeCycle(sampleCycle())
	persons := newFakePersons("Ana", "Bia")
	boom := errors.New("boom")
	persons.err = boom

	if _, err := DecodeCycle(context.Background(), data, persons); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestDecodeCycleResolvesEachNameOnce(t *testing.T) {
	data, _ := EncodeCycle(sampleCycle())
	persons := newFakePersons("Ana", "Bia")
	if _, err := DecodeCycle(context.Background(), data, persons); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if persons.gets != 2 {
		t.Fatalf("expected 2 lookups, got %d", persons.gets)
	}
}

func TestDecodeCycleInvalidDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  any
	}{
		{"bad start", map[string]any{"start": "03/01/2024", "records": []any{}}},
		{"bad end", map[string]any{"start": "2024-03-01", "end": "soon", "records": []any{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := json.Marshal(tt.doc)
			if _, err := DecodeCycle(context.Background(), data, newFakePersons()); !errors.Is(err, core.ErrInvalidDate) {
				t.Fatalf("expected ErrInvalidDate, got %v", err)
			}
		})
	}
	if _, err := DecodeCycle(context.Background(), []byte("{"), newFakePersons()); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}

func TestDecodeCycleInconsistentDocument(t *testing.T) {
	persons := newFakePersons("Ana", "Bia")
	tests := []struct {
		name string
		doc  map[string]any
		want error
	}{
		{"end on start", map[string]any{"start": "2024-03-01", "end": "2024-03-01", "records": []any{}}, cycle.ErrEndNotAfterStart},
		{"end before start", map[string]any{"start": "2024-03-01", "end": "2024-02-01", "records": []any{}}, cycle.ErrEndNotAfterStart},
		{"duplicate person", map[string]any{"start": "2024-03-01", "records": []any{
			map[string]any{"person": "Ana", "dependent": false},
			map[string]any{"person": "Ana", "dependent": true},
		}}, cycle.ErrDuplicatePerson},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := json.Marshal(tt.doc)
			if _, err := DecodeCycle(context.Background(), data, persons); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCachedPersonStore(t *testing.T) {
	ctx := context.Background()
	next := newFakePersons("Ana")
	s := NewCachedPersonStore(next, cache.NewLRUCache[core.Person](8, time.Minute))

	for i := 0; i < 3; i++ {
		p, err := s.Get(ctx, "Ana")
		if err != nil || p == nil || p.Name != "Ana" {
			t.Fatalf("Get(Ana) = %v, %v", p, err)
		}
	}
	if next.gets != 1 {
		t.Fatalf("expected one backend lookup, got %d", next.gets)
	}

	if p, _ := s.Get(ctx, "Bia"); p != nil {
		t.Fatalf("expected miss for Bia")
	}
	if err := next.Save(ctx, core.Person{Name: "Bia"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if p, _ := s.Get(ctx, "Bia"); p == nil {
		t.Fatalf("misses must not be cached")
	}

	if err := s.Save(ctx, core.Person{Name: "Caio"}); err != nil {
		t.Fatalf("save through cache: %v", err)
	}
	before := next.gets
	if p, _ := s.Get(ctx, "Caio"); p == nil || next.gets != before {
		t.Fatalf("saved person should be served from cache")
	}
}
