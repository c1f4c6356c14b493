package routing

import (
	"context"
	"time"

	"radiology-routing/internal/models"
)

type MockDataStore struct {
	GetFacilitiesBySiteFunc   func(ctx context.Context, siteID int64) ([]*models.Facility, error)
	GetCapacityFunc           func(ctx context.Context, siteID int64, equipmentType string, from, to time.Time) ([]*models.CapacityRecord, error)
	GetSchedulesFunc          func(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error)
	CountSpecialtyMatchesFunc func(ctx context.Context, radiologistIDs []string, specialty string) (int, error)
	CountPendingAssignedFunc  func(ctx context.Context, siteID int64) (int, error)
	CountScheduledFunc        func(ctx context.Context, siteID int64, from, to time.Time) (int, error)
	GetWorkItemFunc           func(ctx context.Context, ref models.WorkItemRef) (*models.WorkItem, error)
	ListSitesFunc             func(ctx context.Context) ([]*models.Site, error)
	UpdateAssignmentFunc      func(ctx context.Context, ref models.WorkItemRef, siteID int64, reason string, score int) error
	InsertRoutingDecisionFunc func(ctx context.Context, d *models.RoutingDecision) error
	ListPendingUnassignedFunc func(ctx context.Context) ([]*models.WorkItem, error)
	ListTimeSensitiveDueFunc  func(ctx context.Context, before time.Time) ([]*models.WorkItem, error)
}

func (m *MockDataStore) GetFacilitiesBySite(ctx context.Context, siteID int64) ([]*models.Facility, error) {
	if m.GetFacilitiesBySiteFunc != nil {
		return m.GetFacilitiesBySiteFunc(ctx, siteID)
	}
	return nil, nil
}

func (m *MockDataStore) GetCapacity(ctx context.Context, siteID int64, equipmentType string, from, to time.Time) ([]*models.CapacityRecord, error) {
	if m.GetCapacityFunc != nil {
		return m.GetCapacityFunc(ctx, siteID, equipmentType, from, to)
	}
	return nil, nil
}

func (m *MockDataStore) GetSchedules(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error) {
	if m.GetSchedulesFunc != nil {
		return m.GetSchedulesFunc(ctx, siteID, from, to)
	}
	return nil, nil
}

func (m *MockDataStore) CountSpecialtyMatches(ctx context.Context, radiologistIDs []string, specialty string) (int, error) {
	if m.CountSpecialtyMatchesFunc != nil {
		return m.CountSpecialtyMatchesFunc(ctx, radiologistIDs, specialty)
	}
	return 0, nil
}

func (m *MockDataStore) CountPendingAssigned(ctx context.Context, siteID int64) (int, error) {
	if m.CountPendingAssignedFunc != nil {
		return m.CountPendingAssignedFunc(ctx, siteID)
	}
	return 0, nil
}

func (m *MockDataStore) CountScheduled(ctx context.Context, siteID int64, from, to time.Time) (int, error) {
	if m.CountScheduledFunc != nil {
		return m.CountScheduledFunc(ctx, siteID, from, to)
	}
	return 0, nil
}

func (m *MockDataStore) GetWorkItem(ctx context.Context, ref models.WorkItemRef) (*models.WorkItem, error) {
	return m.GetWorkItemFunc(ctx, ref)
}

func (m *MockDataStore) ListSites(ctx context.Context) ([]*models.Site, error) {
	return m.ListSitesFunc(ctx)
}

func (m *MockDataStore) UpdateAssignment(ctx context.Context, ref models.WorkItemRef, siteID int64, reason string, score int) error {
	if m.UpdateAssignmentFunc != nil {
		return m.UpdateAssignmentFunc(ctx, ref, siteID, reason, score)
	}
	return nil
}

func (m *MockDataStore) InsertRoutingDecision(ctx context.Context, d *models.RoutingDecision) error {
	if m.InsertRoutingDecisionFunc != nil {
		return m.InsertRoutingDecisionFunc(ctx, d)
	}
	return nil
}

func (m *MockDataStore) ListPendingUnassigned(ctx context.Context) ([]*models.WorkItem, error) {
	return m.ListPendingUnassignedFunc(ctx)
}

func (m *MockDataStore) ListTimeSensitiveDue(ctx context.Context, before time.Time) ([]*models.WorkItem, error) {
	return m.ListTimeSensitiveDueFunc(ctx, before)
}

type MockNotifier struct {
	AssignmentRoutedFunc func(ctx context.Context, result *models.RoutingResult) error
}

func (m *MockNotifier) AssignmentRouted(ctx context.Context, result *models.RoutingResult) error {
	if m.AssignmentRoutedFunc != nil {
		return m.AssignmentRoutedFunc(ctx, result)
	}
	return nil
}
