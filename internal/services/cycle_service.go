// Package services provides the household use cases on top of the cycle
// aggregate and its stores.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/cycle"
	"casa/internal/log"
	"casa/internal/report"
	"casa/internal/store"
)

var (
	ErrNoCurrentCycle  = errors.New("no current cycle")
	ErrCycleNotFound   = errors.New("cycle not found")
	ErrPayerNotInCycle = errors.New("payer is not part of the current cycle")
)

// EventPublisher announces cycle lifecycle events.
type EventPublisher interface {
	PublishCycleClosed(ctx context.Context, event *amqp.CycleClosedEvent) error
}

// CycleService orchestrates cycle use cases across the stores and the
// optional event publisher.
type CycleService struct {
	cycles    store.CycleStore
	persons   store.PersonStore
	publisher EventPublisher
	now       func() time.Time
	logger    *log.Logger
}

type Option func(*CycleService)

// WithClock replaces the wall clock used to determine today.
func WithClock(now func() time.Time) Option {
	return func(s *CycleService) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *CycleService) { s.logger = l.WithComponent(log.ComponentService) }
}

// NewCycleService creates the service. publisher may be nil, in which case
// events are skipped.
func NewCycleService(cycles store.CycleStore, persons store.PersonStore, publisher EventPublisher, opts ...Option) *CycleService {
	s := &CycleService{
		cycles:    cycles,
		persons:   persons,
		publisher: publisher,
		now:       time.Now,
		logger:    log.Default(log.ComponentService),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CycleService) today() core.Date {
	return core.Today(s.now())
}

// CurrentCycle returns the open cycle containing today, creating a first
// cycle or the successor of a closed one when needed.
func (s *CycleService) CurrentCycle(ctx context.Context) (CycleView, error) {
	c, err := s.EnsureCurrentCycle(ctx)
	if err != nil {
		return CycleView{}, err
	}
	return NewCycleView(c)
}

// EnsureCurrentCycle is CurrentCycle without the view.
func (s *CycleService) EnsureCurrentCycle(ctx context.Context) (*cycle.Cycle, error) {
	today := s.today()
	latest, err := s.cycles.Load(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("load current cycle: %w", err)
	}
	switch {
	case latest == nil:
		c := cycle.New(today)
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Created first cycle", log.FieldCycleStart, today.String())
		return c, nil
	case latest.Closed():
		c := cycle.FromPrevious(latest, today)
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Opened successor cycle",
			log.FieldCycleStart, today.String(),
			"previous_start", latest.Start().String())
		return c, nil
	default:
		return latest, nil
	}
}

// CycleAt returns the cycle that was current on date.
func (s *CycleService) CycleAt(ctx context.Context, date core.Date) (CycleView, error) {
	c, err := s.cycles.Load(ctx, date)
	if err != nil {
		return CycleView{}, fmt.Errorf("load cycle on %s: %w", date, err)
	}
	if c == nil {
		return CycleView{}, fmt.Errorf("%w on %s", ErrCycleNotFound, date)
	}
	return NewCycleView(c)
}

// History lists the start dates of every stored cycle, oldest first.
func (s *CycleService) History(ctx context.Context) ([]core.Date, error) {
	dates, err := s.cycles.StartDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return dates, nil
}

// People lists every known person, whether or not in the current cycle.
func (s *CycleService) People(ctx context.Context) ([]core.Person, error) {
	people, err := s.persons.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	return people, nil
}

// AddPerson registers the person and adds them to the current cycle in
// the given role.
func (s *CycleService) AddPerson(ctx context.Context, name string, dependent bool) (cycle.Result, error) {
	c, err := s.current(ctx)
	if err != nil {
		return cycle.OK, err
	}
	p, err := core.NewPerson(name)
	if err != nil {
		return cycle.OK, err
	}
	if err := s.persons.Save(ctx, p); err != nil {
		return cycle.OK, fmt.Errorf("save person: %w", err)
	}
	var res cycle.Result
	if dependent {
		res = c.AddDependent(p)
	} else {
		res = c.AddContributor(p)
	}
	return s.commit(ctx, c, res, log.OpAddPerson, log.FieldPerson, p.Name, log.FieldDependent, dependent)
}

type AddIncomeParams struct {
	Person           string
	Name             string
	Amount           core.Money
	WithheldAtSource bool
	Recurring        bool
}

// AddIncome adds or replaces an income of a person in the current cycle.
func (s *CycleService) AddIncome(ctx context.Context, p AddIncomeParams) (cycle.Result, error) {
	income := core.Income{
		Name:             strings.TrimSpace(p.Name),
		Amount:           p.Amount,
		WithheldAtSource: p.WithheldAtSource,
		Recurring:        p.Recurring,
	}
	if err := income.Validate(); err != nil {
		return cycle.OK, fmt.Errorf("invalid income: %w", err)
	}
	c, err := s.current(ctx)
	if err != nil {
		return cycle.OK, err
	}
	res := c.AddIncome(strings.TrimSpace(p.Person), income)
	return s.commit(ctx, c, res, log.OpAddIncome, log.FieldPerson, p.Person, log.FieldIncome, income.Name)
}

func (s *CycleService) RemoveIncome(ctx context.Context, person, name string) (cycle.Result, error) {
	c, err := s.current(ctx)
	if err != nil {
		return cycle.OK, err
	}
	res := c.RemoveIncome(strings.TrimSpace(person), strings.TrimSpace(name))
	return s.commit(ctx, c, res, log.OpRemoveIncome, log.FieldPerson, person, log.FieldIncome, name)
}

// PayerOptions lists who, in the current cycle, may have paid an expense
// on behalf of person.
func (s *CycleService) PayerOptions(ctx context.Context, person string) ([]string, error) {
	c, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, p := range c.People() {
		if p.Name != person {
			out = append(out, p.Name)
		}
	}
	return out, nil
}

type AddExpenseParams struct {
	Person    string
	Name      string
	Amount    core.Money
	Payer     string // empty when paid by the household
	Recurring bool
}

// AddExpense adds or replaces an expense of a person in the current cycle.
// A named payer must take part in the current cycle.
func (s *CycleService) AddExpense(ctx context.Context, p AddExpenseParams) (cycle.Result, error) {
	expense := core.Expense{
		Name:      strings.TrimSpace(p.Name),
		Amount:    p.Amount,
		Recurring: p.Recurring,
	}
	if err := expense.Validate(); err != nil {
		return cycle.OK, fmt.Errorf("invalid expense: %w", err)
	}
	c, err := s.current(ctx)
	if err != nil {
		return cycle.OK, err
	}
	if payer := strings.TrimSpace(p.Payer); payer != "" {
		if !c.Has(payer) {
			return cycle.OK, fmt.Errorf("%w: %q", ErrPayerNotInCycle, payer)
		}
		expense.Payer = &core.Person{Name: payer}
	}
	res := c.AddExpense(strings.TrimSpace(p.Person), expense)
	return s.commit(ctx, c, res, log.OpAddExpense, log.FieldPerson, p.Person, log.FieldExpense, expense.Name)
}

func (s *CycleService) RemoveExpense(ctx context.Context, person, name string) (cycle.Result, error) {
	c, err := s.current(ctx)
	if err != nil {
		return cycle.OK, err
	}
	res := c.RemoveExpense(strings.TrimSpace(person), strings.TrimSpace(name))
	return s.commit(ctx, c, res, log.OpRemoveExpense, log.FieldPerson, person, log.FieldExpense, name)
}

// CloseCurrentCycle closes the current cycle today and opens its successor.
// When the cycle cannot close, nothing is saved and the reason is returned.
func (s *CycleService) CloseCurrentCycle(ctx context.Context) (cycle.Result, error) {
	c, err := s.current(ctx)
	if err != nil {
		return cycle.OK, err
	}
	today := s.today()
	if res := c.Close(today); res != cycle.OK {
		return res, nil
	}
	if err := s.save(ctx, c); err != nil {
		return cycle.OK, err
	}
	next := cycle.FromPrevious(c, today)
	if err := s.save(ctx, next); err != nil {
		return cycle.OK, err
	}

	s.logger.InfoContext(ctx, "Cycle closed",
		log.FieldCycleStart, c.Start().String(),
		log.FieldCycleEnd, today.String())

	if err := s.publishClosed(ctx, c, next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish cycle closed event", log.FieldError, err)
		// Don't fail the request - the cycle is closed locally
	}
	return cycle.OK, nil
}

// current loads the cycle containing today.
func (s *CycleService) current(ctx context.Context) (*cycle.Cycle, error) {
	c, err := s.cycles.Load(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("load current cycle: %w", err)
	}
	if c == nil {
		return nil, ErrNoCurrentCycle
	}
	return c, nil
}

// commit saves c when the mutation took effect.
func (s *CycleService) commit(ctx context.Context, c *cycle.Cycle, res cycle.Result, op string, args ...any) (cycle.Result, error) {
	if res != cycle.OK {
		return res, nil
	}
	if err := s.save(ctx, c); err != nil {
		return cycle.OK, err
	}
	s.logger.DebugContext(ctx, "Cycle updated", append([]any{log.FieldOperation, op}, args...)...)
	return cycle.OK, nil
}

func (s *CycleService) save(ctx context.Context, c *cycle.Cycle) error {
	if err := s.cycles.Save(ctx, c); err != nil {
		return fmt.Errorf("save cycle %s: %w", c.Start(), err)
	}
	return nil
}

func (s *CycleService) publishClosed(ctx context.Context, closed, next *cycle.Cycle) error {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping cycle closed event")
		return nil
	}
	end, _ := closed.End()
	rep := report.Build(closed)
	settlements := Settlements(rep)
	event := amqp.NewCycleClosedEvent(closed.Start().String(), end.String(), next.Start().String(),
		rep.TotalCollected.Cents, settlements)
	return s.publisher.PublishCycleClosed(ctx, event)
}

// Settlements lists the settled figure of every person of rep, contributors
// first, in minor units.
func Settlements(rep *report.Report) []amqp.PersonSettlement {
	out := make([]amqp.PersonSettlement, 0, len(rep.Contributors)+len(rep.Dependents))
	for _, cr := range rep.Contributors {
		out = append(out, amqp.PersonSettlement{
			Person: cr.Person.Name,
			Amount: cr.AmountDue.Decimal().String(),
		})
	}
	for _, dr := range rep.Dependents {
		out = append(out, amqp.PersonSettlement{
			Person:    dr.Person.Name,
			Dependent: true,
			Amount:    dr.AmountReceivable.String(),
		})
	}
	return out
}
