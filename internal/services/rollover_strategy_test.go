package services

import (
	"context"
	"testing"

	"casa/internal/core"
)

func TestWeeklyRollover_IsDue(t *testing.T) {
	checker := WeeklyRollover{}
	start := core.NewDate(2024, 1, 1)

	tests := []struct {
		name  string
		today core.Date
		want  bool
	}{
		{name: "same day - not due", today: start, want: false},
		{name: "six days later - not due", today: core.NewDate(2024, 1, 7), want: false},
		{name: "seven days later - due", today: core.NewDate(2024, 1, 8), want: true},
		{name: "weeks later - due", today: core.NewDate(2024, 2, 1), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(start, tt.today); got != tt.want {
				t.Errorf("WeeklyRollover.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyRollover_IsDue(t *testing.T) {
	checker := MonthlyRollover{}

	tests := []struct {
		name  string
		start core.Date
		today core.Date
		want  bool
	}{
		{name: "same month - not due", start: core.NewDate(2024, 1, 10), today: core.NewDate(2024, 1, 31), want: false},
		{name: "next month before target day - not due", start: core.NewDate(2024, 1, 10), today: core.NewDate(2024, 2, 9), want: false},
		{name: "next month on target day - due", start: core.NewDate(2024, 1, 10), today: core.NewDate(2024, 2, 10), want: true},
		{name: "short month uses last day", start: core.NewDate(2024, 1, 31), today: core.NewDate(2024, 2, 29), want: true},
		{name: "short month before last day - not due", start: core.NewDate(2024, 1, 31), today: core.NewDate(2024, 2, 28), want: false},
		{name: "two months later - due", start: core.NewDate(2024, 1, 31), today: core.NewDate(2024, 3, 1), want: true},
		{name: "across year boundary", start: core.NewDate(2023, 12, 5), today: core.NewDate(2024, 1, 5), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.start, tt.today); got != tt.want {
				t.Errorf("MonthlyRollover.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestManualRollover_NeverDue(t *testing.T) {
	if (ManualRollover{}).IsDue(core.NewDate(2020, 1, 1), core.NewDate(2024, 1, 1)) {
		t.Error("ManualRollover must never be due")
	}
}

func TestGetRolloverChecker(t *testing.T) {
	for _, schedule := range []string{RolloverManual, RolloverWeekly, RolloverMonthly} {
		if _, err := GetRolloverChecker(schedule); err != nil {
			t.Errorf("GetRolloverChecker(%q) error = %v", schedule, err)
		}
	}
	if _, err := GetRolloverChecker("fortnightly"); err == nil {
		t.Error("GetRolloverChecker should fail for unknown schedules")
	}
}

func TestRolloverProcessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := NewRolloverProcessor(f.svc, WeeklyRollover{})

	closed, err := p.Process(ctx)
	if err != nil || closed {
		t.Fatalf("first run = %v, %v; want a fresh open cycle", closed, err)
	}
	if dates, _ := f.svc.History(ctx); len(dates) != 1 {
		t.Fatalf("first run must create the current cycle: %v", dates)
	}

	f.clock.advance(7)
	closed, err = p.Process(ctx)
	if err != nil || !closed {
		t.Fatalf("second run = %v, %v; want a rollover", closed, err)
	}
	v, _ := f.svc.CurrentCycle(ctx)
	if v.Start != "2024-03-08" {
		t.Fatalf("current cycle starts %s", v.Start)
	}

	closed, _ = p.Process(ctx)
	if closed {
		t.Fatalf("fresh successor must not roll over")
	}
}

func TestRolloverProcessorNotInitialized(t *testing.T) {
	if _, err := (&RolloverProcessor{}).Process(context.Background()); err == nil {
		t.Fatal("expected error for an uninitialized processor")
	}
}

type everyDay struct{}

func (everyDay) IsDue(start, today core.Date) bool { return today.After(start) }

func TestRegisterRolloverChecker(t *testing.T) {
	RegisterRolloverChecker("daily", everyDay{})
	t.Cleanup(func() { delete(rolloverStrategies, "daily") })

	checker, err := GetRolloverChecker("daily")
	if err != nil {
		t.Fatalf("GetRolloverChecker(daily) error = %v", err)
	}
	if !checker.IsDue(core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 2)) {
		t.Error("registered checker was not used")
	}
}
