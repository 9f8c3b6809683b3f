package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"casa/internal/cycle"
	"casa/internal/report"
)

type IncomeView struct {
	Name             string `json:"name"`
	AmountCents      int64  `json:"amountCents"`
	WithheldAtSource bool   `json:"withheldAtSource"`
	Recurring        bool   `json:"recurring"`
}

type ExpenseView struct {
	Name        string  `json:"name"`
	AmountCents int64   `json:"amountCents"`
	Payer       *string `json:"payer"`
	Recurring   bool    `json:"recurring"`
}

// PersonView is one person's entries and settlement. Contributor figures are
// zero for dependents and dependent figures are zero for contributors.
type PersonView struct {
	Name      string        `json:"name"`
	Dependent bool          `json:"dependent"`
	Incomes   []IncomeView  `json:"incomes"`
	Expenses  []ExpenseView `json:"expenses"`

	TotalIncomeCents       int64 `json:"totalIncomeCents"`
	TotalExpensesCents     int64 `json:"totalExpensesCents"`
	TotalReimbursableCents int64 `json:"totalReimbursableCents"`

	ContributionCents int64 `json:"contributionCents"`
	AmountDueCents    int64 `json:"amountDueCents"`

	Benefit          decimal.Decimal `json:"benefit"`
	AmountReceivable decimal.Decimal `json:"amountReceivable"`
}

type CycleView struct {
	Start               string       `json:"start"`
	End                 *string      `json:"end"`
	Closed              bool         `json:"closed"`
	People              []PersonView `json:"people"`
	TotalCollectedCents int64        `json:"totalCollectedCents"`
}

// NewCycleView renders a cycle with its freshly computed settlement.
func NewCycleView(c *cycle.Cycle) (CycleView, error) {
	rep := report.Build(c)
	v := CycleView{
		Start:               c.Start().String(),
		Closed:              c.Closed(),
		People:              make([]PersonView, 0),
		TotalCollectedCents: rep.TotalCollected.Cents,
	}
	if end, ok := c.End(); ok {
		s := end.String()
		v.End = &s
	}
	for _, r := range c.Records() {
		settled, ok := rep.Person(r.Person.Name)
		if !ok {
			return CycleView{}, fmt.Errorf("person %q missing from report", r.Person.Name)
		}
		v.People = append(v.People, newPersonView(r, settled))
	}
	return v, nil
}

func newPersonView(r cycle.Record, settled report.PersonReport) PersonView {
	pv := PersonView{
		Name:             r.Person.Name,
		Dependent:        r.Dependent,
		Incomes:          make([]IncomeView, 0, len(r.Incomes)),
		Expenses:         make([]ExpenseView, 0, len(r.Expenses)),
		Benefit:          decimal.Zero,
		AmountReceivable: decimal.Zero,
	}
	for _, i := range r.Incomes {
		pv.Incomes = append(pv.Incomes, IncomeView{
			Name:             i.Name,
			AmountCents:      i.Amount.Cents,
			WithheldAtSource: i.WithheldAtSource,
			Recurring:        i.Recurring,
		})
	}
	for _, e := range r.Expenses {
		ev := ExpenseView{Name: e.Name, AmountCents: e.Amount.Cents, Recurring: e.Recurring}
		if e.Payer != nil {
			name := e.Payer.Name
			ev.Payer = &name
		}
		pv.Expenses = append(pv.Expenses, ev)
	}

	if d := settled.Dependent; d != nil {
		pv.TotalIncomeCents = d.TotalIncome.Cents
		pv.TotalExpensesCents = d.TotalExpenses.Cents
		pv.TotalReimbursableCents = d.TotalReimbursable.Cents
		pv.Benefit = d.Benefit
		pv.AmountReceivable = d.AmountReceivable
		return pv
	}
	c := settled.Contributor
	pv.TotalIncomeCents = c.TotalIncome.Cents
	pv.TotalExpensesCents = c.TotalExpenses.Cents
	pv.TotalReimbursableCents = c.TotalReimbursable.Cents
	pv.ContributionCents = c.Contribution.Cents
	pv.AmountDueCents = c.AmountDue.Cents
	return pv
}

// Person returns the named person's view.
func (v CycleView) Person(name string) (PersonView, bool) {
	for _, p := range v.People {
		if p.Name == name {
			return p, true
		}
	}
	return PersonView{}, false
}
