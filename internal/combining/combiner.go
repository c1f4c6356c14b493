package combining

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"radiology-routing/internal/models"
	"radiology-routing/internal/routing"
)

// Tx is the transactional boundary around one combine: every write goes
// through it and either all commit or none do.
type Tx interface {
	InsertCombinedVisit(ctx context.Context, visit *models.CombinedVisit) (int64, error)
	LinkOrder(ctx context.Context, visitID, orderID int64) error
	MarkOrderScheduled(ctx context.Context, orderID int64, date, timeOfDay string) error
	Commit() error
	Rollback() error
}

// Store is what the combiner needs from the relational store.
type Store interface {
	PendingGroupsByPatientSite(ctx context.Context) ([]*models.CombinableGroup, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	Begin(ctx context.Context) (Tx, error)
}

// Combiner finds pending orders that can share one patient visit and, on
// operator confirmation, schedules them atomically.
type Combiner struct {
	store Store
	log   *zap.Logger
}

func NewCombiner(store Store, log *zap.Logger) *Combiner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Combiner{store: store, log: log}
}

// FindCombinable returns groups of >=2 pending orders sharing patient and
// site. The eligibility check is deliberately permissive: same patient plus
// same site, nothing else. Savings count trips avoided by combining.
func (c *Combiner) FindCombinable(ctx context.Context) ([]*models.CombinableGroup, error) {
	groups, err := c.store.PendingGroupsByPatientSite(ctx)
	if err != nil {
		return nil, err
	}

	var combinable []*models.CombinableGroup
	for _, g := range groups {
		if len(g.OrderIDs) < 2 {
			continue
		}
		g.Physicians = dedupe(g.Physicians)
		g.PotentialSavings = len(g.OrderIDs) - 1
		combinable = append(combinable, g)
	}
	return combinable, nil
}

// Combine schedules the given orders as one visit on the shared date and
// time. The whole operation runs in one transaction: a failure on any member
// rolls back every write, including the visit row.
func (c *Combiner) Combine(ctx context.Context, orderIDs []int64, date, timeOfDay string) (*models.CombinedVisit, error) {
	if len(orderIDs) == 0 {
		return nil, fmt.Errorf("no orders to combine: %w", routing.ErrInvalidCombination)
	}

	first, err := c.store.GetOrder(ctx, orderIDs[0])
	if err != nil {
		return nil, err
	}
	if first.AssignedSiteID == nil && first.SiteID == nil {
		return nil, fmt.Errorf("order %d has no site: %w", first.ID, routing.ErrInvalidCombination)
	}
	siteID := first.SiteID
	if first.AssignedSiteID != nil {
		siteID = first.AssignedSiteID
	}

	tx, err := c.store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	visit := &models.CombinedVisit{
		SiteID:       *siteID,
		CombinedDate: date,
		CombinedTime: timeOfDay,
		Status:       models.StatusScheduled,
		OrderIDs:     orderIDs,
	}

	visitID, err := tx.InsertCombinedVisit(ctx, visit)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	visit.ID = visitID

	for _, orderID := range orderIDs {
		if err := tx.LinkOrder(ctx, visitID, orderID); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.MarkOrderScheduled(ctx, orderID, date, timeOfDay); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return nil, err
	}

	c.log.Info("orders combined",
		zap.Int64("visit_id", visitID),
		zap.Int64("site_id", *siteID),
		zap.Int("orders", len(orderIDs)))

	return visit, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
