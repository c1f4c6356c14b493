package workload

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"radiology-routing/internal/models"
)

// Store is what the optimizer reads. It never writes anything.
type Store interface {
	ListPendingOrders(ctx context.Context) ([]*models.Order, error)
	ListSchedules(ctx context.Context, from, to time.Time) ([]*models.Schedule, error)
	ListRadiologists(ctx context.Context) ([]*models.Radiologist, error)
}

// Band is the symmetric deviation from the cohort mean beyond which a site
// counts as over- or under-loaded. 0.20 means +/-20%. The value has no
// derivation beyond operator experience, so it stays tunable.
const DefaultBand = 0.20

// Optimizer aggregates assigned workload per site and staff member over a
// horizon and proposes staff reassignments. Output is advisory only; the
// optimizer never mutates schedules.
type Optimizer struct {
	store Store
	band  float64
	log   *zap.Logger
}

func NewOptimizer(store Store, band float64, log *zap.Logger) *Optimizer {
	if band <= 0 {
		band = DefaultBand
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimizer{store: store, band: band, log: log}
}

func (o *Optimizer) Optimize(ctx context.Context, start, end time.Time) (*models.OptimizationResult, error) {
	radiologists, err := o.store.ListRadiologists(ctx)
	if err != nil {
		return nil, err
	}
	schedules, err := o.store.ListSchedules(ctx, start, end)
	if err != nil {
		return nil, err
	}
	orders, err := o.store.ListPendingOrders(ctx)
	if err != nil {
		return nil, err
	}

	siteWorkloads := make(map[int64]int)
	for _, order := range orders {
		siteID := order.AssignedSiteID
		if siteID == nil {
			siteID = order.SiteID
		}
		if siteID != nil {
			siteWorkloads[*siteID]++
		}
	}

	siteRadiologists := make(map[int64]map[string]bool)
	radiologistSites := make(map[string][]int64)
	for _, sch := range schedules {
		if siteRadiologists[sch.SiteID] == nil {
			siteRadiologists[sch.SiteID] = make(map[string]bool)
		}
		siteRadiologists[sch.SiteID][sch.RadiologistID] = true
		radiologistSites[sch.RadiologistID] = append(radiologistSites[sch.RadiologistID], sch.SiteID)
	}

	// A radiologist's share of a site's workload is the site total split
	// evenly across everyone scheduled there.
	radiologistWorkloads := make(map[string]float64)
	for siteID, ids := range siteRadiologists {
		count := len(ids)
		if count == 0 {
			count = 1
		}
		share := float64(siteWorkloads[siteID]) / float64(count)
		for id := range ids {
			radiologistWorkloads[id] += share
		}
	}

	var mean float64
	if len(siteWorkloads) > 0 {
		var sum int
		for _, w := range siteWorkloads {
			sum += w
		}
		mean = float64(sum) / float64(len(siteWorkloads))
	}

	var overloaded, underloaded []models.SiteLoad
	for siteID, w := range siteWorkloads {
		switch {
		case float64(w) > mean*(1+o.band):
			overloaded = append(overloaded, models.SiteLoad{SiteID: siteID, Workload: w})
		case float64(w) < mean*(1-o.band):
			underloaded = append(underloaded, models.SiteLoad{SiteID: siteID, Workload: w})
		}
	}
	sort.Slice(overloaded, func(i, j int) bool { return overloaded[i].Workload > overloaded[j].Workload })
	sort.Slice(underloaded, func(i, j int) bool { return underloaded[i].Workload < underloaded[j].Workload })

	var recommendations []models.Recommendation
	for _, over := range overloaded {
		for _, under := range underloaded {
			movable := o.movableRadiologist(radiologists, radiologistSites, under.SiteID)
			if movable == nil {
				continue
			}
			recommendations = append(recommendations, models.Recommendation{
				Action:          "reassign",
				FromSiteID:      over.SiteID,
				ToSiteID:        under.SiteID,
				RadiologistID:   movable.ID,
				RadiologistName: movable.FullName(),
				Reason: fmt.Sprintf("Site %d is overworked (%d orders) while site %d is underworked (%d orders)",
					over.SiteID, over.Workload, under.SiteID, under.Workload),
			})
		}
	}

	o.log.Info("workload optimization complete",
		zap.Int("sites", len(siteWorkloads)),
		zap.Int("overloaded", len(overloaded)),
		zap.Int("underloaded", len(underloaded)),
		zap.Int("recommendations", len(recommendations)))

	return &models.OptimizationResult{
		SiteWorkloads:        siteWorkloads,
		RadiologistWorkloads: radiologistWorkloads,
		OverloadedSites:      overloaded,
		UnderloadedSites:     underloaded,
		Recommendations:      recommendations,
		AverageWorkload:      mean,
	}, nil
}

// movableRadiologist picks the first radiologist who either already covers
// the destination site in the horizon or has no assignments in it at all.
func (o *Optimizer) movableRadiologist(radiologists []*models.Radiologist, radiologistSites map[string][]int64, toSite int64) *models.Radiologist {
	for _, rad := range radiologists {
		sites := radiologistSites[rad.ID]
		if len(sites) == 0 {
			return rad
		}
		for _, siteID := range sites {
			if siteID == toSite {
				return rad
			}
		}
	}
	return nil
}
