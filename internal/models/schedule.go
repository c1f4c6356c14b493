package models

import "time"

type Radiologist struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Status      string    `json:"status"` // active, inactive
	HomeSiteID  *int64    `json:"home_site_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *Radiologist) FullName() string {
	return r.FirstName + " " + r.LastName
}

// Schedule places one radiologist at one site on one date. Many radiologists
// may cover the same site on the same date, and one radiologist may appear at
// different sites across dates.
type Schedule struct {
	ID            int64     `json:"id"`
	RadiologistID string    `json:"radiologist_id"`
	SiteID        int64     `json:"site_id"`
	Date          time.Time `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Status        string    `json:"status"` // scheduled, vacation, sick
}

// Specialty is one declared proficiency (1-10) for a radiologist.
type Specialty struct {
	RadiologistID string `json:"radiologist_id"`
	Specialty     string `json:"specialty"`
	Proficiency   int    `json:"proficiency"`
}
