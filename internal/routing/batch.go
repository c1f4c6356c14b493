package routing

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"radiology-routing/internal/models"
)

type OutcomeStatus string

const (
	OutcomeRouted OutcomeStatus = "routed"
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeSkipped marks items not attempted because the batch deadline
	// expired before they were reached. Distinct from a routing failure.
	OutcomeSkipped OutcomeStatus = "skipped"
)

// ItemOutcome is one work item's result within a batch run.
type ItemOutcome struct {
	WorkItem models.WorkItemRef    `json:"work_item"`
	Status   OutcomeStatus         `json:"status"`
	Result   *models.RoutingResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// AutoRoutePending assigns every pending, unassigned work item. A failure for
// one item never aborts the rest; each item gets its own outcome.
func (e *Engine) AutoRoutePending(ctx context.Context) ([]ItemOutcome, error) {
	items, err := e.store.ListPendingUnassigned(ctx)
	if err != nil {
		return nil, err
	}
	outcomes := e.routeAll(ctx, items)
	e.logBatch("auto-route pending", outcomes)
	return outcomes, nil
}

// RouteTimeSensitive assigns time-sensitive items whose deadline falls within
// the next 24 hours, earliest deadline first. This ascending-deadline order is
// the engine's only batch ordering guarantee.
func (e *Engine) RouteTimeSensitive(ctx context.Context) ([]ItemOutcome, error) {
	cutoff := time.Now().Add(24 * time.Hour)
	items, err := e.store.ListTimeSensitiveDue(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].Deadline, items[j].Deadline
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return di.Before(*dj)
	})

	outcomes := e.routeAll(ctx, items)
	e.logBatch("route time-sensitive", outcomes)
	return outcomes, nil
}

func (e *Engine) routeAll(ctx context.Context, items []*models.WorkItem) []ItemOutcome {
	outcomes := make([]ItemOutcome, 0, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			// Batch deadline hit: report the remainder as not attempted.
			for _, rest := range items[i:] {
				outcomes = append(outcomes, ItemOutcome{WorkItem: rest.Ref, Status: OutcomeSkipped})
			}
			break
		}

		result, err := e.Assign(ctx, item.Ref)
		if err != nil {
			outcomes = append(outcomes, ItemOutcome{WorkItem: item.Ref, Status: OutcomeFailed, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, ItemOutcome{WorkItem: item.Ref, Status: OutcomeRouted, Result: result})
	}
	return outcomes
}

func (e *Engine) logBatch(name string, outcomes []ItemOutcome) {
	var routed, failed, skipped int
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeRouted:
			routed++
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}
	e.log.Info(name+" complete",
		zap.Int("routed", routed),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped))
}
