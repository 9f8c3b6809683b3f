// This file implements the Strategy Pattern for automatic cycle rollover.
// Each schedule (manual, weekly, monthly) has its own strategy that decides
// whether the current cycle is due to close.

package services

import (
	"fmt"
	"time"

	"casa/internal/core"
)

// Rollover schedules
const (
	RolloverManual  = "manual"
	RolloverWeekly  = "weekly"
	RolloverMonthly = "monthly"
)

// RolloverChecker is the strategy interface for deciding whether an open
// cycle should be closed automatically.
type RolloverChecker interface {
	// IsDue returns true if a cycle that started on start should close today.
	IsDue(start, today core.Date) bool
}

// ManualRollover never closes a cycle on its own.
type ManualRollover struct{}

func (ManualRollover) IsDue(_, _ core.Date) bool { return false }

// WeeklyRollover closes a cycle once 7 or more days have passed.
type WeeklyRollover struct{}

func (WeeklyRollover) IsDue(start, today core.Date) bool {
	daysSince := today.Sub(start.Time).Hours() / 24
	return daysSince >= 7
}

// MonthlyRollover closes a cycle in a later month once the day of the month
// it started on is reached, or on the last day of shorter months.
type MonthlyRollover struct{}

func (MonthlyRollover) IsDue(start, today core.Date) bool {
	months := (today.Year()-start.Year())*12 + int(today.Month()-start.Month())
	if months <= 0 {
		return false
	}
	if months > 1 {
		return true
	}

	targetDay := start.Day()
	lastDayOfMonth := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return today.Day() >= targetDay
}

// rolloverStrategies maps schedule names to their checkers.
var rolloverStrategies = map[string]RolloverChecker{
	RolloverManual:  ManualRollover{},
	RolloverWeekly:  WeeklyRollover{},
	RolloverMonthly: MonthlyRollover{},
}

// GetRolloverChecker returns the checker for a schedule name.
func GetRolloverChecker(schedule string) (RolloverChecker, error) {
	checker, ok := rolloverStrategies[schedule]
	if !ok {
		return nil, fmt.Errorf("unknown rollover schedule: %s", schedule)
	}
	return checker, nil
}

// RegisterRolloverChecker registers a checker for a new schedule name.
func RegisterRolloverChecker(schedule string, checker RolloverChecker) {
	rolloverStrategies[schedule] = checker
}
