package services

import (
	"context"
	"fmt"

	"casa/internal/cycle"
	"casa/internal/log"
)

// RolloverProcessor keeps an open current cycle and closes it when its
// schedule says it is due.
type RolloverProcessor struct {
	service *CycleService
	checker RolloverChecker
}

func NewRolloverProcessor(service *CycleService, checker RolloverChecker) *RolloverProcessor {
	return &RolloverProcessor{service: service, checker: checker}
}

// Process ensures a current cycle exists and closes it when due. It reports
// whether a cycle was closed.
func (p *RolloverProcessor) Process(ctx context.Context) (bool, error) {
	if p.service == nil || p.checker == nil {
		return false, fmt.Errorf("processor not properly initialized")
	}

	c, err := p.service.EnsureCurrentCycle(ctx)
	if err != nil {
		return false, fmt.Errorf("ensure current cycle: %w", err)
	}

	today := p.service.today()
	if !p.checker.IsDue(c.Start(), today) {
		p.service.logger.DebugContext(ctx, "Cycle not due for rollover",
			log.FieldCycleStart, c.Start().String(),
			"today", today.String())
		return false, nil
	}

	res, err := p.service.CloseCurrentCycle(ctx)
	if err != nil {
		return false, fmt.Errorf("close current cycle: %w", err)
	}
	if res != cycle.OK {
		p.service.logger.WarnContext(ctx, "Cycle due for rollover could not close",
			log.FieldCycleStart, c.Start().String(),
			log.FieldResult, res.String())
		return false, nil
	}
	return true, nil
}
