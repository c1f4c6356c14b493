package routing

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"radiology-routing/internal/models"
)

// Engine routes one work item to the optimal site: it gates candidates on
// equipment eligibility, scores the survivors concurrently, persists the
// winning assignment and appends a routing-decision audit row.
type Engine struct {
	store    DataStore
	scorer   *Scorer
	notifier Notifier
	log      *zap.Logger

	// maxConcurrentScores caps the scoring fan-out within one Assign call.
	// Candidate sets are small today, but scoring is not free.
	maxConcurrentScores int
}

func NewEngine(store DataStore, scorer *Scorer, notifier Notifier, log *zap.Logger, maxConcurrentScores int) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if maxConcurrentScores <= 0 {
		maxConcurrentScores = 8
	}
	return &Engine{
		store:               store,
		scorer:              scorer,
		notifier:            notifier,
		log:                 log,
		maxConcurrentScores: maxConcurrentScores,
	}
}

// Assign routes the referenced work item. Re-running overwrites the previous
// assignment and appends a new audit row; it never duplicates the item.
func (e *Engine) Assign(ctx context.Context, ref models.WorkItemRef) (*models.RoutingResult, error) {
	item, err := e.store.GetWorkItem(ctx, ref)
	if err != nil {
		return nil, err
	}

	candidates, err := e.eligibleSites(ctx, item)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no sites available with %s equipment: %w", item.OrderType, ErrNoCandidates)
	}

	scores, err := e.scoreCandidates(ctx, candidates, item)
	if err != nil {
		return nil, err
	}

	// Highest total wins. Ties break on input order: the first candidate
	// encountered keeps the win, reproducibly.
	best := scores[0]
	for _, sc := range scores[1:] {
		if sc.Total > best.Total {
			best = sc
		}
	}

	if err := e.store.UpdateAssignment(ctx, ref, best.SiteID, best.Reason, best.Total); err != nil {
		return nil, err
	}

	decision := &models.RoutingDecision{
		WorkItem:       ref,
		OriginalSiteID: item.PreferredSiteID,
		RoutedSiteID:   best.SiteID,
		Reason:         best.Reason,
		Score:          best.Total,
	}
	if err := e.store.InsertRoutingDecision(ctx, decision); err != nil {
		return nil, err
	}

	all := make([]models.CandidateScore, len(scores))
	for i, sc := range scores {
		all[i] = *sc
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Total > all[j].Total })

	result := &models.RoutingResult{
		WorkItem:         ref,
		AssignedSiteID:   best.SiteID,
		AssignedSiteName: best.SiteName,
		Score:            best.Total,
		Reason:           best.Reason,
		AllScores:        all,
	}

	e.log.Info("work item routed",
		zap.String("kind", string(ref.Kind)),
		zap.Int64("id", ref.ID),
		zap.Int64("site_id", best.SiteID),
		zap.Int("score", best.Total))

	e.notify(ctx, result)

	return result, nil
}

// eligibleSites applies the hard equipment gate: a site must hold the
// requested equipment type in quantity > 0. Scoring never relaxes this.
func (e *Engine) eligibleSites(ctx context.Context, item *models.WorkItem) ([]*models.Site, error) {
	sites, err := e.store.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []*models.Site
	for _, site := range sites {
		facilities, err := e.store.GetFacilitiesBySite(ctx, site.ID)
		if err != nil {
			return nil, err
		}
		if eq := findEquipment(facilities, item.OrderType); eq != nil && eq.Quantity > 0 {
			candidates = append(candidates, site)
		}
	}
	return candidates, nil
}

// scoreCandidates scores every candidate independently. Invocations share no
// mutable state, so they run concurrently, bounded by maxConcurrentScores.
// The returned slice preserves candidate input order.
func (e *Engine) scoreCandidates(ctx context.Context, candidates []*models.Site, item *models.WorkItem) ([]*models.CandidateScore, error) {
	profile := ProfileFor(item.Ref.Kind)
	scores := make([]*models.CandidateScore, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrentScores)
	for i, site := range candidates {
		i, site := i, site
		g.Go(func() error {
			sc, err := e.scorer.Score(gctx, site, item, profile)
			if err != nil {
				return err
			}
			scores[i] = sc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

func (e *Engine) notify(ctx context.Context, result *models.RoutingResult) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.AssignmentRouted(ctx, result); err != nil {
		e.log.Warn("routing notification failed",
			zap.Int64("id", result.WorkItem.ID),
			zap.Error(err))
	}
}
