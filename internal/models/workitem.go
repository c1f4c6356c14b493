package models

import "time"

type WorkItemKind string

const (
	KindOrder       WorkItemKind = "order"
	KindRequisition WorkItemKind = "requisition"
)

// WorkItemRef identifies one order or requisition for the routing engine.
type WorkItemRef struct {
	Kind WorkItemKind `json:"kind"`
	ID   int64        `json:"id"`
}

// WorkItem is the common routing view over orders and requisitions: the fields
// the scorer and engine read, regardless of which table the item lives in.
type WorkItem struct {
	Ref               WorkItemRef `json:"ref"`
	PatientID         string      `json:"patient_id"`
	OrderType         string      `json:"order_type"`
	BodyPart          string      `json:"body_part"`
	Priority          Priority    `json:"priority"`
	PriorityScore     int         `json:"priority_score"`
	IsTimeSensitive   bool        `json:"is_time_sensitive"`
	Deadline          *time.Time  `json:"time_sensitive_deadline"`
	SpecialtyRequired string      `json:"specialty_required"`
	PreferredSiteID   *int64      `json:"preferred_site_id"`
	AssignedSiteID    *int64      `json:"assigned_site_id"`
	Status            Status      `json:"status"`
}

// AsWorkItem converts an Order to the routing view.
func (o *Order) AsWorkItem() *WorkItem {
	return &WorkItem{
		Ref:               WorkItemRef{Kind: KindOrder, ID: o.ID},
		PatientID:         o.PatientID,
		OrderType:         o.OrderType,
		BodyPart:          o.BodyPart,
		Priority:          o.Priority,
		PriorityScore:     o.PriorityScore,
		IsTimeSensitive:   o.IsTimeSensitive,
		Deadline:          o.Deadline,
		SpecialtyRequired: o.SpecialtyRequired,
		PreferredSiteID:   o.SiteID,
		AssignedSiteID:    o.AssignedSiteID,
		Status:            o.Status,
	}
}

// AsWorkItem converts a Requisition to the routing view. Requisitions carry no
// preferred site or specialty requirement.
func (r *Requisition) AsWorkItem() *WorkItem {
	return &WorkItem{
		Ref:             WorkItemRef{Kind: KindRequisition, ID: r.ID},
		PatientID:       r.PatientID,
		OrderType:       r.OrderType,
		BodyPart:        r.BodyPart,
		Priority:        r.Priority,
		PriorityScore:   r.PriorityScore,
		IsTimeSensitive: r.IsTimeSensitive,
		Deadline:        r.Deadline,
		AssignedSiteID:  r.AssignedSiteID,
		Status:          r.Status,
	}
}
