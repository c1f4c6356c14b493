package routing

import "radiology-routing/internal/models"

// Profile selects the weight configuration for one scoring pass. Orders and
// requisitions share one scorer; the profile carries the per-factor caps and
// the two behavioral switches that differ between them.
type Profile struct {
	Kind models.WorkItemKind

	EquipmentMax int
	StaffingMax  int
	WorkloadMax  int
	PriorityMax  int
	GeographyMax int // 0 disables the geography factor

	// SpecialtySplit scores staffing as specialty-match (15/5, neutral 10)
	// plus min(10, staff*2). When false, staffing is min(StaffingMax, staff*5).
	SpecialtySplit bool

	// TierBonuses adds flat priority-tier bonuses (stat +10, urgent +5) and
	// the requisition-style time-sensitive bonus before clamping.
	TierBonuses bool
}

// OrderProfile is the 5-factor /100 profile for imaging orders.
func OrderProfile() Profile {
	return Profile{
		Kind:           models.KindOrder,
		EquipmentMax:   30,
		StaffingMax:    25,
		WorkloadMax:    20,
		PriorityMax:    15,
		GeographyMax:   10,
		SpecialtySplit: true,
	}
}

// RequisitionProfile is the 4-factor /100 profile for intake requisitions.
func RequisitionProfile() Profile {
	return Profile{
		Kind:         models.KindRequisition,
		EquipmentMax: 30,
		StaffingMax:  25,
		WorkloadMax:  20,
		PriorityMax:  25,
		TierBonuses:  true,
	}
}

// ProfileFor returns the profile matching a work item's kind.
func ProfileFor(kind models.WorkItemKind) Profile {
	if kind == models.KindRequisition {
		return RequisitionProfile()
	}
	return OrderProfile()
}
