package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IsoLayout is the wire and storage layout of a Date.
const IsoLayout = "2006-01-02"

type (
	// Date is a calendar day; the time-of-day part is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Person is identified by its trimmed, case-sensitive name.
	Person struct {
		Name string
	}

	Income struct {
		Name             string
		Amount           Money
		WithheldAtSource bool
		Recurring        bool // carried into the next cycle
	}

	Expense struct {
		Name      string
		Amount    Money
		Payer     *Person // nil when paid by the household
		Recurring bool    // carried into the next cycle
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyName     = errors.New("empty name")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the calendar day of now in now's own location.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a yyyy-mm-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(IsoLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(IsoLayout)
}

// After reports whether d is a strictly later day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Before reports whether d is a strictly earlier day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// MarshalJSON overrides the RFC 3339 encoding promoted from time.Time.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	return d.UnmarshalText([]byte(s))
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Validate rejects negative amounts; zero is a valid amount.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewPerson trims the name and rejects blank ones.
func NewPerson(name string) (Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, ErrEmptyName
	}
	return Person{Name: name}, nil
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if len(i.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return i.Amount.Validate()
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if e.Payer != nil {
		if err := e.Payer.Validate(); err != nil {
			return fmt.Errorf("payer: %w", err)
		}
	}
	return e.Amount.Validate()
}

// PaidBy reports whether the expense was paid by the named person.
func (e Expense) PaidBy(name string) bool {
	return e.Payer != nil && e.Payer.Name == name
}

// TotalIncome sums every income amount.
func TotalIncome(incomes []Income) Money {
	var total Money
	for _, i := range incomes {
		total = total.Add(i.Amount)
	}
	return total
}

// TotalWithheld sums the incomes already taxed at source.
func TotalWithheld(incomes []Income) Money {
	var total Money
	for _, i := range incomes {
		if i.WithheldAtSource {
			total = total.Add(i.Amount)
		}
	}
	return total
}

func TotalExpenses(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
