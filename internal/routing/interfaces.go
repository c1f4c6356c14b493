package routing

import (
	"context"
	"time"

	"radiology-routing/internal/models"
)

// InventoryQuery looks up which equipment a site owns.
type InventoryQuery interface {
	GetFacilitiesBySite(ctx context.Context, siteID int64) ([]*models.Facility, error)
}

// CapacityQuery looks up projected open slots per (site, equipment type, date).
type CapacityQuery interface {
	GetCapacity(ctx context.Context, siteID int64, equipmentType string, from, to time.Time) ([]*models.CapacityRecord, error)
}

// StaffingQuery looks up scheduled radiologists and their specialties.
type StaffingQuery interface {
	GetSchedules(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error)
	CountSpecialtyMatches(ctx context.Context, radiologistIDs []string, specialty string) (int, error)
}

// BacklogQuery looks up how much work a site already holds.
type BacklogQuery interface {
	CountPendingAssigned(ctx context.Context, siteID int64) (int, error)
	CountScheduled(ctx context.Context, siteID int64, from, to time.Time) (int, error)
}

// DataStore is everything the engine and batch router need from the store.
type DataStore interface {
	InventoryQuery
	CapacityQuery
	StaffingQuery
	BacklogQuery

	GetWorkItem(ctx context.Context, ref models.WorkItemRef) (*models.WorkItem, error)
	ListSites(ctx context.Context) ([]*models.Site, error)
	UpdateAssignment(ctx context.Context, ref models.WorkItemRef, siteID int64, reason string, score int) error
	InsertRoutingDecision(ctx context.Context, d *models.RoutingDecision) error

	ListPendingUnassigned(ctx context.Context) ([]*models.WorkItem, error)
	ListTimeSensitiveDue(ctx context.Context, before time.Time) ([]*models.WorkItem, error)
}

// Notifier receives best-effort notifications after a routing decision has
// been persisted. A Notifier error is logged and never rolls back the
// assignment.
type Notifier interface {
	AssignmentRouted(ctx context.Context, result *models.RoutingResult) error
}
