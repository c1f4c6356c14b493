package models

import "time"

// Requisition is the pre-approval intake shape. It routes through the same
// engine as an Order but is scored with the requisition weight profile.
type Requisition struct {
	ID                 int64      `json:"id"`
	RequisitionNumber  string     `json:"requisition_number"`
	PatientID          string     `json:"patient_id"`
	PatientName        string     `json:"patient_name"`
	PatientEmail       string     `json:"patient_email"`
	OrderType          string     `json:"order_type"`
	BodyPart           string     `json:"body_part"`
	ClinicalIndication string     `json:"clinical_indication"`
	Priority           Priority   `json:"priority"`
	PriorityScore      int        `json:"priority_score"`
	IsTimeSensitive    bool       `json:"is_time_sensitive"`
	Deadline           *time.Time `json:"time_sensitive_deadline"`
	ReferringPhysician string     `json:"referring_physician"`
	Status             Status     `json:"status"`
	AssignedSiteID     *int64     `json:"assigned_site_id"`
	RoutingReason      *string    `json:"routing_reason"`
	RoutingScore       *int       `json:"routing_score"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
