package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"radiology-routing/internal/models"
)

var testDay = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestScorer(store DataStore) *Scorer {
	s := NewScorer(store, DefaultScorerConfig())
	s.now = func() time.Time { return testDay }
	return s
}

func capacityRow(siteID int64, dayOffset, total, available int) *models.CapacityRecord {
	return &models.CapacityRecord{
		SiteID:         siteID,
		EquipmentType:  "MRI",
		Date:           dateOf(testDay).AddDate(0, 0, dayOffset),
		TotalCapacity:  total,
		AvailableSlots: available,
	}
}

func scheduleRows(siteID int64, radiologistIDs ...string) []*models.Schedule {
	var rows []*models.Schedule
	for _, id := range radiologistIDs {
		rows = append(rows, &models.Schedule{RadiologistID: id, SiteID: siteID, Date: dateOf(testDay), Status: "scheduled"})
	}
	return rows
}

func TestScore_EquipmentFullAvailabilityWithoutCapacityRows(t *testing.T) {
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI"}
	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

	require.NoError(t, err)
	// No capacity rows means every day counts as fully available.
	require.Equal(t, 30, sc.Factors.Equipment)
}

func TestScore_EquipmentAveragesAvailabilityRatio(t *testing.T) {
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
		},
		GetCapacityFunc: func(ctx context.Context, siteID int64, eq string, from, to time.Time) ([]*models.CapacityRecord, error) {
			var rows []*models.CapacityRecord
			for i := 0; i < 7; i++ {
				rows = append(rows, capacityRow(siteID, i, 10, 5))
			}
			return rows, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI"}
	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

	require.NoError(t, err)
	// 7 days at ratio 0.5 -> round(0.5 * 30) = 15.
	require.Equal(t, 15, sc.Factors.Equipment)
}

func TestScore_StaffingFlatLowScoreWhenNobodyScheduled(t *testing.T) {
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI", SpecialtyRequired: "Neuro"}
	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

	require.NoError(t, err)
	require.Equal(t, 5, sc.Factors.Staffing)
}

func TestScore_StaffingSpecialtySplit(t *testing.T) {
	tests := []struct {
		name      string
		specialty string
		matches   int
		staff     []string
		want      int
	}{
		{"specialty matched", "Neuro", 2, []string{"rad1", "rad2", "rad3"}, 15 + 6},
		{"specialty missing", "Neuro", 0, []string{"rad1", "rad2", "rad3"}, 5 + 6},
		{"no specialty required", "", 0, []string{"rad1", "rad2", "rad3"}, 10 + 6},
		{"availability capped at 10", "", 0, []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7"}, 10 + 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &MockDataStore{
				GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
					return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
				},
				GetSchedulesFunc: func(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error) {
					return scheduleRows(siteID, tc.staff...), nil
				},
				CountSpecialtyMatchesFunc: func(ctx context.Context, ids []string, specialty string) (int, error) {
					require.Equal(t, tc.specialty, specialty)
					require.Len(t, ids, len(tc.staff))
					return tc.matches, nil
				},
			}

			scorer := newTestScorer(store)
			item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI", SpecialtyRequired: tc.specialty}
			sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

			require.NoError(t, err)
			require.Equal(t, tc.want, sc.Factors.Staffing)
		})
	}
}

func TestScore_StaffingRequisitionCountOnly(t *testing.T) {
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
		},
		GetSchedulesFunc: func(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error) {
			// Duplicate entries for the same radiologist count once.
			rows := scheduleRows(siteID, "rad1", "rad2", "rad1")
			return rows, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindRequisition, ID: 1}, OrderType: "MRI"}
	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, RequisitionProfile())

	require.NoError(t, err)
	require.Equal(t, 10, sc.Factors.Staffing) // 2 distinct * 5
}

func TestScore_WorkloadNormalization(t *testing.T) {
	tests := []struct {
		pending, scheduled, want int
	}{
		{0, 0, 20},
		{10, 15, 10},
		{50, 0, 0},
		{60, 10, 0},
	}

	for _, tc := range tests {
		store := &MockDataStore{
			GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
				return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
			},
			CountPendingAssignedFunc: func(ctx context.Context, siteID int64) (int, error) { return tc.pending, nil },
			CountScheduledFunc: func(ctx context.Context, siteID int64, from, to time.Time) (int, error) {
				return tc.scheduled, nil
			},
		}

		scorer := newTestScorer(store)
		item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI"}
		sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

		require.NoError(t, err)
		require.Equal(t, tc.want, sc.Factors.Workload, "pending=%d scheduled=%d", tc.pending, tc.scheduled)
	}
}

func TestScore_PriorityTimeSensitiveSlotCheck(t *testing.T) {
	run := func(available int) int {
		store := &MockDataStore{
			GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
				return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
			},
			GetCapacityFunc: func(ctx context.Context, siteID int64, eq string, from, to time.Time) ([]*models.CapacityRecord, error) {
				return []*models.CapacityRecord{capacityRow(siteID, 0, 10, available)}, nil
			},
		}

		scorer := newTestScorer(store)
		item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI", IsTimeSensitive: true}
		sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())
		require.NoError(t, err)
		return sc.Factors.PriorityMatch
	}

	require.Equal(t, 15, run(3)) // 10 + 5: open slot within 24 hours
	require.Equal(t, 5, run(0))  // 10 - 5: nothing open within 24 hours
}

func TestScore_PriorityRedundancyBonusAndClamp(t *testing.T) {
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 2}}, nil
		},
		GetCapacityFunc: func(ctx context.Context, siteID int64, eq string, from, to time.Time) ([]*models.CapacityRecord, error) {
			return []*models.CapacityRecord{capacityRow(siteID, 0, 10, 5)}, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{
		Ref:             models.WorkItemRef{Kind: models.KindOrder, ID: 1},
		OrderType:       "MRI",
		Priority:        models.PriorityStat,
		PriorityScore:   10,
		IsTimeSensitive: true,
	}
	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

	require.NoError(t, err)
	// 10 + 5 (urgent slot) + 3 (two units) = 18, clamped to the 15 cap.
	require.Equal(t, 15, sc.Factors.PriorityMatch)
}

func TestScore_PriorityRequisitionTierBonuses(t *testing.T) {
	run := func(priority models.Priority, timeSensitive bool, quantity int) int {
		store := &MockDataStore{
			GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
				return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: quantity}}, nil
			},
		}

		scorer := newTestScorer(store)
		item := &models.WorkItem{
			Ref:             models.WorkItemRef{Kind: models.KindRequisition, ID: 1},
			OrderType:       "MRI",
			Priority:        priority,
			IsTimeSensitive: timeSensitive,
		}
		sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, RequisitionProfile())
		require.NoError(t, err)
		return sc.Factors.PriorityMatch
	}

	require.Equal(t, 10, run(models.PriorityRoutine, false, 1))
	require.Equal(t, 15, run(models.PriorityUrgent, false, 1))
	require.Equal(t, 20, run(models.PriorityRoutine, true, 1))  // 10 + 10
	require.Equal(t, 25, run(models.PriorityRoutine, true, 2))  // 10 + 10 + 5
	require.Equal(t, 25, run(models.PriorityStat, true, 2))     // 35 clamped to 25
}

func TestScore_Geography(t *testing.T) {
	preferred := int64(1)
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI", PreferredSiteID: &preferred}

	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())
	require.NoError(t, err)
	require.Equal(t, 8, sc.Factors.Geography)

	sc, err = scorer.Score(context.Background(), &models.Site{ID: 2, Name: "South"}, item, OrderProfile())
	require.NoError(t, err)
	require.Equal(t, 5, sc.Factors.Geography)

	// The requisition profile carries no geography factor at all.
	reqItem := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindRequisition, ID: 1}, OrderType: "MRI"}
	sc, err = scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, reqItem, RequisitionProfile())
	require.NoError(t, err)
	require.Equal(t, 0, sc.Factors.Geography)
}

func TestScore_ReasonMirrorsFactorBands(t *testing.T) {
	preferred := int64(1)
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 1}}, nil
		},
		GetSchedulesFunc: func(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error) {
			return scheduleRows(siteID, "rad1", "rad2", "rad3"), nil
		},
		CountSpecialtyMatchesFunc: func(ctx context.Context, ids []string, specialty string) (int, error) {
			return 1, nil
		},
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{
		Ref:               models.WorkItemRef{Kind: models.KindOrder, ID: 1},
		OrderType:         "MRI",
		SpecialtyRequired: "Neuro",
		PreferredSiteID:   &preferred,
	}
	sc, err := scorer.Score(context.Background(), &models.Site{ID: 1, Name: "North"}, item, OrderProfile())

	require.NoError(t, err)
	require.Contains(t, sc.Reason, "excellent equipment availability")
	require.Contains(t, sc.Reason, "specialty-matched radiologists available")
	require.Contains(t, sc.Reason, "low current workload")
	require.Contains(t, sc.Reason, "preferred location for patient")
	require.Contains(t, sc.Reason, "Selected North because:")
}

func TestScore_Deterministic(t *testing.T) {
	store := &MockDataStore{
		GetFacilitiesBySiteFunc: func(ctx context.Context, siteID int64) ([]*models.Facility, error) {
			return []*models.Facility{{SiteID: siteID, EquipmentType: "MRI", Quantity: 2}}, nil
		},
		GetCapacityFunc: func(ctx context.Context, siteID int64, eq string, from, to time.Time) ([]*models.CapacityRecord, error) {
			return []*models.CapacityRecord{capacityRow(siteID, 0, 8, 4), capacityRow(siteID, 3, 8, 2)}, nil
		},
		GetSchedulesFunc: func(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error) {
			return scheduleRows(siteID, "rad1", "rad2"), nil
		},
		CountPendingAssignedFunc: func(ctx context.Context, siteID int64) (int, error) { return 12, nil },
	}

	scorer := newTestScorer(store)
	item := &models.WorkItem{Ref: models.WorkItemRef{Kind: models.KindOrder, ID: 1}, OrderType: "MRI", IsTimeSensitive: true}
	site := &models.Site{ID: 1, Name: "North"}

	first, err := scorer.Score(context.Background(), site, item, OrderProfile())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := scorer.Score(context.Background(), site, item, OrderProfile())
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
