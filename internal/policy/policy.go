// Package policy provides the tax and dependency rules applied to a cycle.
//
// This file implements the Strategy Pattern for settlement: the tax policy
// decides how much each contributor owes and the dependency policy decides
// how much of the collected total each dependent receives. Both are built
// from the dependent count of a cycle and are never persisted.
package policy

import (
	"github.com/shopspring/decimal"

	"casa/internal/core"
)

// TaxPolicy computes the contribution owed by a contributor.
type TaxPolicy interface {
	// Rate returns the fraction of income owed, for reporting only.
	Rate() float64
	// TaxOwed returns the contribution owed on the given incomes.
	TaxOwed(incomes []core.Income) core.Money
}

// DependencyPolicy computes the benefit paid to a dependent.
type DependencyPolicy interface {
	// ReceiveFactor returns the share of the collected total each dependent receives.
	ReceiveFactor() decimal.Decimal
	// Benefit returns the benefit in minor units; it may be fractional or negative.
	Benefit(totalCollected core.Money, incomes []core.Income) decimal.Decimal
}

// HouseholdTax taxes contributors at 1 - 1/(2+d) for d dependents.
type HouseholdTax struct {
	dependents int64
}

func NewHouseholdTax(dependents int) HouseholdTax {
	if dependents < 0 {
		dependents = 0
	}
	return HouseholdTax{dependents: int64(dependents)}
}

// Rate returns 1 - 1/(2+d).
func (p HouseholdTax) Rate() float64 {
	return 1 - 1/float64(2+p.dependents)
}

// TaxOwed returns floor(total * (1+d)/(2+d)), which equals floor(total * Rate())
// without the floating point error.
func (p HouseholdTax) TaxOwed(incomes []core.Income) core.Money {
	total := core.TotalIncome(incomes).Cents
	return core.Money{Cents: floorDiv(total*(1+p.dependents), 2+p.dependents)}
}

// HalvedDependentShare splits half of the collected total between the
// household and the d dependents, deducting each dependent's own income.
type HalvedDependentShare struct {
	dependents int64
}

func NewHalvedDependentShare(dependents int) HalvedDependentShare {
	if dependents < 0 {
		dependents = 0
	}
	return HalvedDependentShare{dependents: int64(dependents)}
}

// ReceiveFactor returns 0.5/(1+d).
func (p HalvedDependentShare) ReceiveFactor() decimal.Decimal {
	return decimal.NewFromFloat(0.5).Div(decimal.NewFromInt(1 + p.dependents))
}

// Benefit returns totalCollected/(2(1+d)) - sum(incomes). No rounding or clamping
// is applied.
func (p HalvedDependentShare) Benefit(totalCollected core.Money, incomes []core.Income) decimal.Decimal {
	share := totalCollected.Decimal().Div(decimal.NewFromInt(2 * (1 + p.dependents)))
	return share.Sub(core.TotalIncome(incomes).Decimal())
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
