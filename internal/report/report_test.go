package report

import (
	"testing"

	"github.com/shopspring/decimal"

	"casa/internal/core"
	"casa/internal/cycle"
)

var (
	ana = core.Person{Name: "Ana"}
	bia = core.Person{Name: "Bia"}
	day = core.NewDate(2024, 3, 1)
)

func money(c int64) core.Money { return core.Money{Cents: c} }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuild_ContributorAndDependentScenario(t *testing.T) {
	c := cycle.New(day)
	c.AddContributor(ana)
	c.AddDependent(bia)
	c.AddIncome("Ana", core.Income{Name: "salary", Amount: money(10000)})

	r := Build(c)

	if r.TotalCollected.Cents != 6666 {
		t.Fatalf("TotalCollected = %d, want 6666", r.TotalCollected.Cents)
	}
	a, ok := r.Person("Ana")
	if !ok || a.IsDependent() {
		t.Fatalf("Ana must be a contributor: %+v", a)
	}
	if a.Contributor.Contribution.Cents != 6666 || a.Contributor.AmountDue.Cents != 6666 {
		t.Fatalf("Ana = %+v", *a.Contributor)
	}
	b, ok := r.Person("Bia")
	if !ok || !b.IsDependent() {
		t.Fatalf("Bia must be a dependent: %+v", b)
	}
	if !b.Dependent.Benefit.Equal(dec("1666.5")) || !b.Dependent.AmountReceivable.Equal(dec("1666.5")) {
		t.Fatalf("Bia benefit = %s receivable = %s", b.Dependent.Benefit, b.Dependent.AmountReceivable)
	}
}

func TestBuild_ReimbursementCreditsPayerAndChargesBeneficiary(t *testing.T) {
	c := cycle.New(day)
	c.AddContributor(ana)
	c.AddDependent(bia)
	c.AddExpense("Bia", core.Expense{Name: "school", Amount: money(300), Payer: &ana})

	r := Build(c)
	a, _ := r.Person("Ana")
	b, _ := r.Person("Bia")

	if a.Contributor.TotalReimbursable.Cents != 300 || a.Contributor.AmountDue.Cents != -300 {
		t.Fatalf("Ana = %+v", *a.Contributor)
	}
	if b.Dependent.TotalExpenses.Cents != 300 || !b.Dependent.AmountReceivable.Equal(dec("-300")) {
		t.Fatalf("Bia expenses = %d receivable = %s", b.Dependent.TotalExpenses.Cents, b.Dependent.AmountReceivable)
	}
}

func TestBuild_Ledger(t *testing.T) {
	c := cycle.New(day)
	c.AddContributor(ana)
	c.AddDependent(bia)
	c.AddIncome("Ana", core.Income{Name: "salary", Amount: money(10000), WithheldAtSource: true})
	c.AddIncome("Ana", core.Income{Name: "rent", Amount: money(2000)})
	c.AddExpense("Ana", core.Expense{Name: "market", Amount: money(700)})
	c.AddIncome("Bia", core.Income{Name: "internship", Amount: money(500), WithheldAtSource: true})
	c.AddExpense("Bia", core.Expense{Name: "bus", Amount: money(100)})
	c.AddExpense("Bia", core.Expense{Name: "book", Amount: money(200), Payer: &ana})

	r := Build(c)
	a, _ := r.Person("Ana")
	b, _ := r.Person("Bia")

	// d=1: tax = floor(12000 * 2/3) = 8000
	want := ContributorReport{
		Person:            ana,
		Contribution:      money(8000),
		TotalIncome:       money(12000),
		Withheld:          money(10000),
		TotalExpenses:     money(700),
		TotalReimbursable: money(200),
		AmountDue:         money(8000 - 10000 + 700 - 200),
	}
	if *a.Contributor != want {
		t.Fatalf("Ana = %+v, want %+v", *a.Contributor, want)
	}

	// benefit = 8000/4 - 500 = 1500; receivable = 1500 - 300 + 0 + 500
	if !b.Dependent.Benefit.Equal(dec("1500")) {
		t.Fatalf("Bia benefit = %s", b.Dependent.Benefit)
	}
	if b.Dependent.TotalExpenses.Cents != 300 || b.Dependent.Withheld.Cents != 500 || b.Dependent.TotalIncome.Cents != 500 {
		t.Fatalf("Bia = %+v", *b.Dependent)
	}
	if !b.Dependent.AmountReceivable.Equal(dec("1700")) {
		t.Fatalf("Bia receivable = %s", b.Dependent.AmountReceivable)
	}
}

func TestBuild_TotalCollectedSumsContributors(t *testing.T) {
	c := cycle.New(day)
	c.AddContributor(ana)
	c.AddContributor(core.Person{Name: "Caio"})
	c.AddIncome("Ana", core.Income{Name: "salary", Amount: money(1051)})
	c.AddIncome("Caio", core.Income{Name: "salary", Amount: money(1051)})

	r := Build(c)
	if r.TotalCollected.Cents != 1050 {
		t.Fatalf("TotalCollected = %d, want 1050 (each floored to 525)", r.TotalCollected.Cents)
	}
	if len(r.Dependents) != 0 {
		t.Fatalf("unexpected dependents %v", r.Dependents)
	}
}

func TestPerson_NotFound(t *testing.T) {
	c := cycle.New(day)
	c.AddContributor(ana)
	r := Build(c)

	if _, ok := r.Person("Zé"); ok {
		t.Fatalf("expected not found")
	}
	if p, ok := r.Person("Ana"); !ok || p.Contributor.AmountDue.Cents != 0 {
		t.Fatalf("empty record must still be found: %+v", p)
	}
}

func TestBuild_EmptyCycle(t *testing.T) {
	r := Build(cycle.New(day))
	if r.TotalCollected.Cents != 0 || len(r.Contributors) != 0 || len(r.Dependents) != 0 {
		t.Fatalf("unexpected report %+v", r)
	}
}
