package routing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"radiology-routing/internal/models"
)

// ScorerConfig carries the tunable constants behind the score bands. The
// defaults match the calibration the bands were written against; neither
// value has a stated derivation, so both stay configurable.
type ScorerConfig struct {
	// HorizonDays is the capacity/staffing lookahead window.
	HorizonDays int
	// ReferenceWeeklyLoad is the item count treated as a full week of work
	// when normalizing the workload factor.
	ReferenceWeeklyLoad int
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{HorizonDays: 7, ReferenceWeeklyLoad: 50}
}

// Scorer computes the composite score of one candidate site for one work
// item. It is deterministic given its query inputs and has no side effects.
// Callers must only pass sites that hold the required equipment.
type Scorer struct {
	store DataStore
	cfg   ScorerConfig
	now   func() time.Time
}

func NewScorer(store DataStore, cfg ScorerConfig) *Scorer {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 7
	}
	if cfg.ReferenceWeeklyLoad <= 0 {
		cfg.ReferenceWeeklyLoad = 50
	}
	return &Scorer{store: store, cfg: cfg, now: time.Now}
}

// siteInputs is one site's worth of query results, fetched up front so the
// factor calculations stay pure.
type siteInputs struct {
	facilities []*models.Facility
	capacity   []*models.CapacityRecord
	schedules  []*models.Schedule
	pending    int
	scheduled  int
}

func (s *Scorer) Score(ctx context.Context, site *models.Site, item *models.WorkItem, p Profile) (*models.CandidateScore, error) {
	today := dateOf(s.now())
	horizon := today.AddDate(0, 0, s.cfg.HorizonDays)

	in, err := s.fetchInputs(ctx, site.ID, item.OrderType, today, horizon)
	if err != nil {
		return nil, fmt.Errorf("score site %d: %w", site.ID, err)
	}

	var f models.ScoreFactors
	f.Equipment = s.equipmentScore(in, item, today, p)
	f.Staffing, err = s.staffingScore(ctx, in, item, p)
	if err != nil {
		return nil, fmt.Errorf("score site %d: %w", site.ID, err)
	}
	f.Workload = s.workloadScore(in, p)
	f.PriorityMatch = s.priorityScore(in, item, today, p)
	f.Geography = s.geographyScore(site, item, p)

	total := f.Equipment + f.Staffing + f.Workload + f.PriorityMatch + f.Geography

	return &models.CandidateScore{
		SiteID:   site.ID,
		SiteName: site.Name,
		Total:    total,
		Factors:  f,
		Reason:   buildReason(p, f, site, item, total),
	}, nil
}

// fetchInputs issues the four read-only queries concurrently; they touch
// disjoint data.
func (s *Scorer) fetchInputs(ctx context.Context, siteID int64, equipmentType string, from, to time.Time) (*siteInputs, error) {
	in := &siteInputs{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		in.facilities, err = s.store.GetFacilitiesBySite(gctx, siteID)
		return err
	})
	g.Go(func() error {
		var err error
		in.capacity, err = s.store.GetCapacity(gctx, siteID, equipmentType, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		in.schedules, err = s.store.GetSchedules(gctx, siteID, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		if in.pending, err = s.store.CountPendingAssigned(gctx, siteID); err != nil {
			return err
		}
		in.scheduled, err = s.store.CountScheduled(gctx, siteID, from, to)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

// equipmentScore averages the availability ratio for the requested equipment
// over the horizon. Days without a capacity record count as fully available.
func (s *Scorer) equipmentScore(in *siteInputs, item *models.WorkItem, today time.Time, p Profile) int {
	eq := findEquipment(in.facilities, item.OrderType)
	if eq == nil || eq.Quantity == 0 {
		return 0
	}

	var total float64
	for i := 0; i < s.cfg.HorizonDays; i++ {
		day := today.AddDate(0, 0, i)
		if rec := findCapacity(in.capacity, day); rec != nil {
			denom := rec.TotalCapacity
			if denom < 1 {
				denom = 1
			}
			total += float64(rec.AvailableSlots) / float64(denom)
		} else {
			total += 1
		}
	}

	avg := total / float64(s.cfg.HorizonDays)
	return int(math.Round(avg * float64(p.EquipmentMax)))
}

func (s *Scorer) staffingScore(ctx context.Context, in *siteInputs, item *models.WorkItem, p Profile) (int, error) {
	ids := distinctRadiologists(in.schedules)
	if len(ids) == 0 {
		// Flat low score when nobody is scheduled, regardless of the rest.
		return 5, nil
	}

	if !p.SpecialtySplit {
		score := len(ids) * 5
		if score > p.StaffingMax {
			score = p.StaffingMax
		}
		return score, nil
	}

	specialty := 10
	if item.SpecialtyRequired != "" {
		matches, err := s.store.CountSpecialtyMatches(ctx, ids, item.SpecialtyRequired)
		if err != nil {
			return 0, err
		}
		if matches > 0 {
			specialty = 15
		} else {
			specialty = 5
		}
	}

	availability := len(ids) * 2
	if availability > 10 {
		availability = 10
	}
	return specialty + availability, nil
}

// workloadScore rewards sites with spare capacity relative to the reference
// weekly load: an empty site scores the max, a fully loaded one scores 0.
func (s *Scorer) workloadScore(in *siteInputs, p Profile) int {
	total := in.pending + in.scheduled
	normalized := 1 - float64(total)/float64(s.cfg.ReferenceWeeklyLoad)
	if normalized < 0 {
		normalized = 0
	}
	return int(math.Round(normalized * float64(p.WorkloadMax)))
}

func (s *Scorer) priorityScore(in *siteInputs, item *models.WorkItem, today time.Time, p Profile) int {
	score := 10
	eq := findEquipment(in.facilities, item.OrderType)

	if p.TierBonuses {
		if item.IsTimeSensitive {
			score += 10
			if eq != nil && eq.Quantity > 1 {
				score += 5
			}
		}
		switch item.Priority {
		case models.PriorityStat:
			score += 10
		case models.PriorityUrgent:
			score += 5
		}
		if score > p.PriorityMax {
			score = p.PriorityMax
		}
		return score
	}

	if item.IsTimeSensitive {
		if s.hasUrgentCapacity(in.capacity, today) {
			score += 5
		} else {
			score -= 5
		}
	}
	if item.PriorityScore >= 8 && eq != nil && eq.Quantity >= 2 {
		score += 3 // redundancy bonus: a second unit covers breakdowns
	}

	if score < 0 {
		score = 0
	}
	if score > p.PriorityMax {
		score = p.PriorityMax
	}
	return score
}

func (s *Scorer) geographyScore(site *models.Site, item *models.WorkItem, p Profile) int {
	if p.GeographyMax == 0 {
		return 0
	}
	if item.PreferredSiteID != nil && *item.PreferredSiteID == site.ID {
		return 8
	}
	return 5
}

// hasUrgentCapacity reports whether any recorded slots are open today or
// tomorrow. A site with no capacity rows in that window fails the check.
func (s *Scorer) hasUrgentCapacity(capacity []*models.CapacityRecord, today time.Time) bool {
	tomorrow := today.AddDate(0, 0, 1)
	available := 0
	for _, rec := range capacity {
		if !dateOf(rec.Date).After(tomorrow) {
			available += rec.AvailableSlots
		}
	}
	return available > 0
}

func buildReason(p Profile, f models.ScoreFactors, site *models.Site, item *models.WorkItem, total int) string {
	var reasons []string

	if p.Kind == models.KindRequisition {
		if f.Equipment > 20 {
			reasons = append(reasons, "excellent equipment availability")
		} else if f.Equipment > 10 {
			reasons = append(reasons, "good equipment availability")
		}
		if f.Staffing > 15 {
			reasons = append(reasons, "strong radiologist coverage")
		}
		if f.Workload > 15 {
			reasons = append(reasons, "low current workload")
		}
		if f.PriorityMatch > 15 {
			reasons = append(reasons, "well-suited for priority requirements")
		}
		if item.IsTimeSensitive {
			reasons = append(reasons, "can accommodate time-sensitive request")
		}
		if len(reasons) == 0 {
			return fmt.Sprintf("Selected %s as the best available option", site.Name)
		}
		return fmt.Sprintf("Selected %s based on: %s", site.Name, strings.Join(reasons, ", "))
	}

	if f.Equipment >= 25 {
		reasons = append(reasons, "excellent equipment availability")
	} else if f.Equipment >= 15 {
		reasons = append(reasons, "good equipment availability")
	}
	if f.Staffing >= 20 {
		reasons = append(reasons, "specialty-matched radiologists available")
	} else if f.Staffing >= 15 {
		reasons = append(reasons, "radiologists available")
	}
	if f.Workload >= 15 {
		reasons = append(reasons, "low current workload")
	} else if f.Workload <= 5 {
		reasons = append(reasons, "higher workload (but still manageable)")
	}
	if item.IsTimeSensitive && f.PriorityMatch >= 12 {
		reasons = append(reasons, "can accommodate time-sensitive order")
	}
	if f.Geography >= 7 {
		reasons = append(reasons, "preferred location for patient")
	}

	return fmt.Sprintf("Selected %s because: %s. Overall score: %d/100", site.Name, strings.Join(reasons, ", "), total)
}

func findEquipment(facilities []*models.Facility, equipmentType string) *models.Facility {
	for _, f := range facilities {
		if f.EquipmentType == equipmentType {
			return f
		}
	}
	return nil
}

func findCapacity(records []*models.CapacityRecord, day time.Time) *models.CapacityRecord {
	for _, rec := range records {
		if sameDay(rec.Date, day) {
			return rec
		}
	}
	return nil
}

func distinctRadiologists(schedules []*models.Schedule) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, sch := range schedules {
		if !seen[sch.RadiologistID] {
			seen[sch.RadiologistID] = true
			ids = append(ids, sch.RadiologistID)
		}
	}
	return ids
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
