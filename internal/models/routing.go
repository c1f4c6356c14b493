package models

import "time"

// RoutingDecision is the append-only audit record for one assignment: why a
// work item was routed where it was. Never mutated after insert.
type RoutingDecision struct {
	ID             int64        `json:"id"`
	WorkItem       WorkItemRef  `json:"work_item"`
	OriginalSiteID *int64       `json:"original_site_id"`
	RoutedSiteID   int64        `json:"routed_site_id"`
	Reason         string       `json:"routing_reason"`
	Score          int          `json:"routing_score"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ScoreFactors is the per-factor breakdown of one candidate score. Geography
// is only populated by the order profile.
type ScoreFactors struct {
	Equipment     int `json:"equipment_availability"`
	Staffing      int `json:"radiologist_availability"`
	Workload      int `json:"workload"`
	PriorityMatch int `json:"priority_match"`
	Geography     int `json:"geographic,omitempty"`
}

type CandidateScore struct {
	SiteID   int64        `json:"site_id"`
	SiteName string       `json:"site_name"`
	Total    int          `json:"score"`
	Factors  ScoreFactors `json:"factors"`
	Reason   string       `json:"reasoning"`
}

// RoutingResult is the outcome of scoring all candidates for one work item.
type RoutingResult struct {
	WorkItem         WorkItemRef      `json:"work_item"`
	AssignedSiteID   int64            `json:"assigned_site_id"`
	AssignedSiteName string           `json:"assigned_site_name"`
	Score            int              `json:"score"`
	Reason           string           `json:"reasoning"`
	AllScores        []CandidateScore `json:"all_scores"`
}
