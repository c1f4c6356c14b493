package models

import "time"

// CombinableGroup is a derived set of pending orders sharing patient and site
// that could be scheduled as one visit. PotentialSavings counts trips avoided.
type CombinableGroup struct {
	PatientID        string   `json:"patient_id"`
	SiteID           int64    `json:"site_id"`
	OrderIDs         []int64  `json:"order_ids"`
	OrderTypes       []string `json:"order_types"`
	Physicians       []string `json:"physicians"`
	PotentialSavings int      `json:"potential_savings"`
}

// CombinedVisit is the persisted record of a confirmed combination. Member
// orders carry the shared date and time.
type CombinedVisit struct {
	ID           int64     `json:"id"`
	SiteID       int64     `json:"site_id"`
	CombinedDate string    `json:"combined_date"`
	CombinedTime string    `json:"combined_time"`
	Status       Status    `json:"status"`
	OrderIDs     []int64   `json:"order_ids"`
	CreatedAt    time.Time `json:"created_at"`
}
