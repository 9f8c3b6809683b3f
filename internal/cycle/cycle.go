// Package cycle implements the household accounting period: the per-person
// incomes and expenses recorded between a start date and an optional end date.
//
// Operations that name an unknown person, add a duplicate person, or are not
// allowed in the current lifecycle state do not fail: they log a warning,
// leave the cycle untouched and report why through a Result.
package cycle

import (
	"errors"
	"fmt"
	"slices"

	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/policy"
)

// Record holds one person's data for a cycle. The role is fixed when the
// person is added.
type Record struct {
	Person    core.Person
	Dependent bool
	Incomes   []core.Income
	Expenses  []core.Expense
}

// Reimbursement is an expense recorded under Beneficiary but paid by someone else.
type Reimbursement struct {
	Beneficiary core.Person
	Expense     core.Expense
}

// Errors returned by Restore for stored data no sequence of operations
// could have produced.
var (
	ErrEndNotAfterStart = errors.New("cycle end is not after its start")
	ErrDuplicatePerson  = errors.New("person recorded twice")
)

type Cycle struct {
	start   core.Date
	end     *core.Date
	records []Record
	logger  *log.Logger
}

// New creates an open, empty cycle starting today.
func New(today core.Date) *Cycle {
	return &Cycle{start: today}
}

// FromPrevious creates an open cycle starting today with the people of prev
// in the same roles, keeping only their recurring incomes and expenses.
func FromPrevious(prev *Cycle, today core.Date) *Cycle {
	records := make([]Record, 0, len(prev.records))
	for _, r := range prev.records {
		records = append(records, Record{
			Person:    r.Person,
			Dependent: r.Dependent,
			Incomes:   filter(r.Incomes, func(i core.Income) bool { return i.Recurring }),
			Expenses:  filter(r.Expenses, func(e core.Expense) bool { return e.Recurring }),
		})
	}
	return &Cycle{start: today, records: records, logger: prev.logger}
}

// Restore rebuilds a cycle from stored data. A nil end means the cycle is open.
// It fails when end does not follow start or a person appears twice.
func Restore(start core.Date, end *core.Date, records []Record) (*Cycle, error) {
	c := &Cycle{start: start, records: make([]Record, 0, len(records))}
	if end != nil {
		if !end.After(start) {
			return nil, fmt.Errorf("%w: %s to %s", ErrEndNotAfterStart, start, *end)
		}
		e := *end
		c.end = &e
	}
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.Person.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePerson, r.Person.Name)
		}
		seen[r.Person.Name] = struct{}{}
		c.records = append(c.records, cloneRecord(r))
	}
	return c, nil
}

// SetLogger replaces the logger used for soft failures.
func (c *Cycle) SetLogger(l *log.Logger) {
	c.logger = l
}

func (c *Cycle) Start() core.Date { return c.start }

// End returns the end date and whether the cycle is closed.
func (c *Cycle) End() (core.Date, bool) {
	if c.end == nil {
		return core.Date{}, false
	}
	return *c.end, true
}

func (c *Cycle) Closed() bool {
	return c.end != nil
}

// CanClose reports whether Close(today) would succeed.
func (c *Cycle) CanClose(today core.Date) bool {
	return !c.Closed() && today.After(c.start)
}

// Close ends the cycle on today. A cycle closes once, and only on a day
// strictly after it started.
func (c *Cycle) Close(today core.Date) Result {
	if c.Closed() {
		return c.soft(AlreadyClosed, log.OpClose)
	}
	if !today.After(c.start) {
		return c.soft(TooEarly, log.OpClose, "today", today.String())
	}
	c.end = &today
	return OK
}

// Records returns a copy of every record in insertion order.
func (c *Cycle) Records() []Record {
	out := make([]Record, 0, len(c.records))
	for _, r := range c.records {
		out = append(out, cloneRecord(r))
	}
	return out
}

func (c *Cycle) People() []core.Person {
	return c.people(func(Record) bool { return true })
}

func (c *Cycle) Contributors() []core.Person {
	return c.people(func(r Record) bool { return !r.Dependent })
}

func (c *Cycle) Dependents() []core.Person {
	return c.people(func(r Record) bool { return r.Dependent })
}

// Has reports whether the named person takes part in the cycle.
func (c *Cycle) Has(name string) bool {
	return c.find(name) >= 0
}

// IsDependent reports the role of the named person; false when absent.
func (c *Cycle) IsDependent(name string) bool {
	i := c.find(name)
	return i >= 0 && c.records[i].Dependent
}

func (c *Cycle) AddContributor(p core.Person) Result {
	return c.addPerson(p, false)
}

func (c *Cycle) AddDependent(p core.Person) Result {
	return c.addPerson(p, true)
}

// IncomesOf returns the person's incomes, or nothing when the person is absent.
func (c *Cycle) IncomesOf(p core.Person) []core.Income {
	i := c.find(p.Name)
	if i < 0 {
		c.soft(PersonNotFound, log.OpRead, log.FieldPerson, p.Name)
		return []core.Income{}
	}
	return slices.Clone(c.records[i].Incomes)
}

// ExpensesOf returns the person's expenses, or nothing when the person is absent.
func (c *Cycle) ExpensesOf(p core.Person) []core.Expense {
	i := c.find(p.Name)
	if i < 0 {
		c.soft(PersonNotFound, log.OpRead, log.FieldPerson, p.Name)
		return []core.Expense{}
	}
	return slices.Clone(c.records[i].Expenses)
}

// AddIncome adds the income or replaces the one with the same name.
// A replaced income moves to the end of the list.
func (c *Cycle) AddIncome(person string, income core.Income) Result {
	i, res := c.mutable(person, log.OpAddIncome)
	if res != OK {
		return res
	}
	r := &c.records[i]
	r.Incomes = append(filter(r.Incomes, func(in core.Income) bool { return in.Name != income.Name }), income)
	return OK
}

func (c *Cycle) RemoveIncome(person, name string) Result {
	i, res := c.mutable(person, log.OpRemoveIncome)
	if res != OK {
		return res
	}
	r := &c.records[i]
	r.Incomes = filter(r.Incomes, func(in core.Income) bool { return in.Name != name })
	return OK
}

// AddExpense adds the expense or replaces the one with the same name.
// A replaced expense moves to the end of the list.
func (c *Cycle) AddExpense(person string, expense core.Expense) Result {
	i, res := c.mutable(person, log.OpAddExpense)
	if res != OK {
		return res
	}
	r := &c.records[i]
	r.Expenses = append(filter(r.Expenses, func(e core.Expense) bool { return e.Name != expense.Name }), expense)
	return OK
}

func (c *Cycle) RemoveExpense(person, name string) Result {
	i, res := c.mutable(person, log.OpRemoveExpense)
	if res != OK {
		return res
	}
	r := &c.records[i]
	r.Expenses = filter(r.Expenses, func(e core.Expense) bool { return e.Name != name })
	return OK
}

// ReimbursableExpensesOf returns every expense, across all records, that p paid.
func (c *Cycle) ReimbursableExpensesOf(p core.Person) []Reimbursement {
	var out []Reimbursement
	for _, r := range c.records {
		for _, e := range r.Expenses {
			if e.PaidBy(p.Name) {
				out = append(out, Reimbursement{Beneficiary: r.Person, Expense: e})
			}
		}
	}
	return out
}

// TaxPolicy returns the tax policy for the current dependent count.
func (c *Cycle) TaxPolicy() policy.TaxPolicy {
	return policy.NewHouseholdTax(c.dependentCount())
}

// DependencyPolicy returns the dependency policy for the current dependent count.
func (c *Cycle) DependencyPolicy() policy.DependencyPolicy {
	return policy.NewHalvedDependentShare(c.dependentCount())
}

func (c *Cycle) addPerson(p core.Person, dependent bool) Result {
	if c.Closed() {
		return c.soft(CycleClosed, log.OpAddPerson, log.FieldPerson, p.Name)
	}
	if c.find(p.Name) >= 0 {
		return c.soft(PersonExists, log.OpAddPerson, log.FieldPerson, p.Name)
	}
	c.records = append(c.records, Record{
		Person:    p,
		Dependent: dependent,
		Incomes:   []core.Income{},
		Expenses:  []core.Expense{},
	})
	return OK
}

// mutable locates the person's record for a mutation on an open cycle.
func (c *Cycle) mutable(person, op string) (int, Result) {
	if c.Closed() {
		return -1, c.soft(CycleClosed, op, log.FieldPerson, person)
	}
	i := c.find(person)
	if i < 0 {
		return -1, c.soft(PersonNotFound, op, log.FieldPerson, person)
	}
	return i, OK
}

func (c *Cycle) find(name string) int {
	return slices.IndexFunc(c.records, func(r Record) bool { return r.Person.Name == name })
}

func (c *Cycle) people(keep func(Record) bool) []core.Person {
	out := []core.Person{}
	for _, r := range c.records {
		if keep(r) {
			out = append(out, r.Person)
		}
	}
	return out
}

func (c *Cycle) dependentCount() int {
	n := 0
	for _, r := range c.records {
		if r.Dependent {
			n++
		}
	}
	return n
}

func (c *Cycle) soft(res Result, op string, args ...any) Result {
	l := c.logger
	if l == nil {
		l = log.Default(log.ComponentCycle)
	}
	attrs := append([]any{log.FieldOperation, op, log.FieldCycleStart, c.start.String()}, args...)
	l.Warn(res.String(), attrs...)
	return res
}

func cloneRecord(r Record) Record {
	return Record{
		Person:    r.Person,
		Dependent: r.Dependent,
		Incomes:   append([]core.Income{}, r.Incomes...),
		Expenses:  append([]core.Expense{}, r.Expenses...),
	}
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
