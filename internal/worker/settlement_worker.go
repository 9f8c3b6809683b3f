// Package worker holds the consumers of cycle events.
package worker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/report"
	"casa/internal/services"
	"casa/internal/store"
)

// SettlementWorker checks published cycle.closed events against the stored
// cycle they describe.
type SettlementWorker struct {
	cycles store.CycleStore
	logger *log.Logger
}

func NewSettlementWorker(cycles store.CycleStore, logger *log.Logger) *SettlementWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &SettlementWorker{cycles: cycles, logger: logger.WithComponent(log.ComponentWorker)}
}

// Verification is the outcome of checking one event.
type Verification struct {
	Matched    bool
	Mismatches []string
}

// HandleCycleClosed processes a single cycle.closed event from AMQP. Only
// storage failures are returned, so the message is requeued; discrepancies
// are logged and the event is acknowledged.
func (w *SettlementWorker) HandleCycleClosed(ctx context.Context, event *amqp.CycleClosedEvent) error {
	fields := log.NewFields().
		WithOperation(log.OpConsume).
		WithCycle(event.Start, event.End)
	fields[log.FieldEventID] = event.EventID
	w.logger.InfoContext(ctx, "Processing cycle closed event", fields.ToSlice()...)

	v, err := w.Verify(ctx, event)
	if err != nil {
		return err
	}

	for _, s := range event.Settlements {
		w.logger.InfoContext(ctx, "Settlement",
			log.FieldPerson, s.Person,
			log.FieldDependent, s.Dependent,
			"amount", s.Amount)
	}

	if !v.Matched {
		w.logger.WarnContext(ctx, "Cycle closed event does not match stored cycle",
			log.FieldEventID, event.EventID,
			"mismatches", v.Mismatches)
		return nil
	}
	w.logger.InfoContext(ctx, "Cycle settlement verified",
		log.FieldEventID, event.EventID,
		"total_collected_cents", event.TotalCollectedCents)
	return nil
}

// Verify recomputes the settlement of the stored cycle starting on
// event.Start and compares it with the event.
func (w *SettlementWorker) Verify(ctx context.Context, event *amqp.CycleClosedEvent) (Verification, error) {
	start, err := core.ParseDate(event.Start)
	if err != nil {
		return Verification{Mismatches: []string{fmt.Sprintf("bad start %q", event.Start)}}, nil
	}

	c, err := w.cycles.Load(ctx, start)
	if err != nil {
		return Verification{}, fmt.Errorf("load cycle %s: %w", event.Start, err)
	}
	if c == nil || !c.Start().Equal(start) {
		return Verification{Mismatches: []string{"cycle " + event.Start + " not found"}}, nil
	}

	var mismatches []string
	end, closed := c.End()
	if !closed {
		mismatches = append(mismatches, "stored cycle is still open")
	} else if end.String() != event.End {
		mismatches = append(mismatches, fmt.Sprintf("end %s, event says %s", end, event.End))
	}

	rep := report.Build(c)
	if rep.TotalCollected.Cents != event.TotalCollectedCents {
		mismatches = append(mismatches, fmt.Sprintf("total collected %d, event says %d",
			rep.TotalCollected.Cents, event.TotalCollectedCents))
	}

	got := make(map[string]amqp.PersonSettlement, len(event.Settlements))
	for _, s := range event.Settlements {
		got[s.Person] = s
	}
	for _, want := range services.Settlements(rep) {
		s, ok := got[want.Person]
		if !ok {
			mismatches = append(mismatches, want.Person+" missing from event")
			continue
		}
		delete(got, want.Person)
		if !sameAmount(s.Amount, want.Amount) || s.Dependent != want.Dependent {
			mismatches = append(mismatches, fmt.Sprintf("%s settles %s, event says %s", want.Person, want.Amount, s.Amount))
		}
	}
	for name := range got {
		mismatches = append(mismatches, name+" not in stored cycle")
	}

	return Verification{Matched: len(mismatches) == 0, Mismatches: mismatches}, nil
}

func sameAmount(a, b string) bool {
	x, err := decimal.NewFromString(a)
	if err != nil {
		return false
	}
	y, err := decimal.NewFromString(b)
	if err != nil {
		return false
	}
	return x.Equal(y)
}
