// Package report derives the settlement of a cycle: what each contributor
// owes the household and what each dependent receives from it.
//
// A Report is always computed from the current state of a cycle and is never
// stored.
package report

import (
	"github.com/shopspring/decimal"

	"casa/internal/core"
	"casa/internal/cycle"
)

type ContributorReport struct {
	Person            core.Person
	Contribution      core.Money // tax owed on the contributor's incomes
	TotalIncome       core.Money
	Withheld          core.Money
	TotalExpenses     core.Money
	TotalReimbursable core.Money
	// AmountDue is Contribution - Withheld + TotalExpenses - TotalReimbursable.
	AmountDue core.Money
}

type DependentReport struct {
	Person            core.Person
	Benefit           decimal.Decimal // in minor units, may be fractional
	TotalIncome       core.Money
	Withheld          core.Money
	TotalExpenses     core.Money
	TotalReimbursable core.Money
	// AmountReceivable is Benefit - TotalExpenses + TotalReimbursable + Withheld.
	AmountReceivable decimal.Decimal
}

// PersonReport is the settlement of one person; exactly one of
// Contributor and Dependent is set.
type PersonReport struct {
	Contributor *ContributorReport
	Dependent   *DependentReport
}

func (p PersonReport) IsDependent() bool { return p.Dependent != nil }

type Report struct {
	Contributors   []ContributorReport
	Dependents     []DependentReport
	TotalCollected core.Money
}

// Build computes the settlement of c with the policies it currently selects.
func Build(c *cycle.Cycle) *Report {
	tax := c.TaxPolicy()
	r := &Report{
		Contributors: make([]ContributorReport, 0),
		Dependents:   make([]DependentReport, 0),
	}

	for _, p := range c.Contributors() {
		incomes := c.IncomesOf(p)
		cr := ContributorReport{
			Person:            p,
			Contribution:      tax.TaxOwed(incomes),
			TotalIncome:       core.TotalIncome(incomes),
			Withheld:          core.TotalWithheld(incomes),
			TotalExpenses:     core.TotalExpenses(c.ExpensesOf(p)),
			TotalReimbursable: totalReimbursable(c, p),
		}
		cr.AmountDue = cr.Contribution.Sub(cr.Withheld).Add(cr.TotalExpenses).Sub(cr.TotalReimbursable)
		r.TotalCollected = r.TotalCollected.Add(cr.Contribution)
		r.Contributors = append(r.Contributors, cr)
	}

	dep := c.DependencyPolicy()
	for _, p := range c.Dependents() {
		incomes := c.IncomesOf(p)
		dr := DependentReport{
			Person:            p,
			Benefit:           dep.Benefit(r.TotalCollected, incomes),
			TotalIncome:       core.TotalIncome(incomes),
			Withheld:          core.TotalWithheld(incomes),
			TotalExpenses:     core.TotalExpenses(c.ExpensesOf(p)),
			TotalReimbursable: totalReimbursable(c, p),
		}
		dr.AmountReceivable = dr.Benefit.
			Sub(dr.TotalExpenses.Decimal()).
			Add(dr.TotalReimbursable.Decimal()).
			Add(dr.Withheld.Decimal())
		r.Dependents = append(r.Dependents, dr)
	}
	return r
}

// Person looks the named person up among contributors, then dependents.
func (r *Report) Person(name string) (PersonReport, bool) {
	for i := range r.Contributors {
		if r.Contributors[i].Person.Name == name {
			return PersonReport{Contributor: &r.Contributors[i]}, true
		}
	}
	for i := range r.Dependents {
		if r.Dependents[i].Person.Name == name {
			return PersonReport{Dependent: &r.Dependents[i]}, true
		}
	}
	return PersonReport{}, false
}

func totalReimbursable(c *cycle.Cycle, p core.Person) core.Money {
	var total core.Money
	for _, r := range c.ReimbursableExpensesOf(p) {
		total = total.Add(r.Expense.Amount)
	}
	return total
}
