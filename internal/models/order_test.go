package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDerivePriorityScore(t *testing.T) {
	cases := []struct {
		name          string
		priority      Priority
		timeSensitive bool
		want          int
	}{
		{"stat", PriorityStat, false, 10},
		{"stat time-sensitive stays capped", PriorityStat, true, 10},
		{"urgent", PriorityUrgent, false, 7},
		{"urgent time-sensitive", PriorityUrgent, true, 9},
		{"routine", PriorityRoutine, false, 5},
		{"routine time-sensitive", PriorityRoutine, true, 7},
		{"low", PriorityLow, false, 3},
		{"low time-sensitive", PriorityLow, true, 5},
		{"unknown falls back to routine", Priority("whenever"), false, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DerivePriorityScore(tc.priority, tc.timeSensitive))
		})
	}
}

func TestAsWorkItem_RoundTripsRoutingFields(t *testing.T) {
	site := int64(3)
	order := &Order{
		ID:              10,
		PatientID:       "pat-1",
		OrderType:       "MRI",
		Priority:        PriorityUrgent,
		PriorityScore:   7,
		IsTimeSensitive: true,
		SiteID:          &site,
		Status:          StatusPending,
	}
	item := order.AsWorkItem()
	require.Equal(t, KindOrder, item.Ref.Kind)
	require.Equal(t, int64(10), item.Ref.ID)
	require.Equal(t, &site, item.PreferredSiteID)
	require.True(t, item.IsTimeSensitive)

	req := &Requisition{ID: 4, PatientID: "pat-2", OrderType: "CT", Priority: PriorityStat}
	reqItem := req.AsWorkItem()
	require.Equal(t, KindRequisition, reqItem.Ref.Kind)
	require.Nil(t, reqItem.PreferredSiteID)
}
