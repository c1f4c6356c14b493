package models

import "time"

type Priority string

const (
	PriorityStat    Priority = "stat"
	PriorityUrgent  Priority = "urgent"
	PriorityRoutine Priority = "routine"
	PriorityLow     Priority = "low"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DerivePriorityScore converts a priority tier to the numeric score used by the
// routing engine. Time-sensitive items get a +2 boost, capped at 10. The stored
// priority_score column is always this function of (priority, time-sensitive);
// it is never set independently.
func DerivePriorityScore(p Priority, timeSensitive bool) int {
	score := 5
	switch p {
	case PriorityStat:
		score = 10
	case PriorityUrgent:
		score = 7
	case PriorityRoutine:
		score = 5
	case PriorityLow:
		score = 3
	}
	if timeSensitive {
		score += 2
		if score > 10 {
			score = 10
		}
	}
	return score
}

type Order struct {
	ID                int64      `json:"id"`
	PatientID         string     `json:"patient_id"`
	PatientName       string     `json:"patient_name"`
	SiteID            *int64     `json:"site_id"` // originating/preferred site
	OrderType         string     `json:"order_type"`
	BodyPart          string     `json:"body_part"`
	Priority          Priority   `json:"priority"`
	PriorityScore     int        `json:"priority_score"`
	IsTimeSensitive   bool       `json:"is_time_sensitive"`
	Deadline          *time.Time `json:"time_sensitive_deadline"`
	SpecialtyRequired string     `json:"specialty_required"`
	OrderingPhysician string     `json:"ordering_physician"`
	Status            Status     `json:"status"`
	AssignedSiteID    *int64     `json:"assigned_site_id"`
	RoutingReason     *string    `json:"routing_reason"`
	RoutingScore      *int       `json:"routing_score"`
	ScheduledDate     *time.Time `json:"scheduled_date"`
	ScheduledTime     string     `json:"scheduled_time"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
