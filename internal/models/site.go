package models

import "time"

type Site struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Facility is one equipment holding at a site: how many units of one
// equipment type the site owns.
type Facility struct {
	ID            int64  `json:"id"`
	SiteID        int64  `json:"site_id"`
	EquipmentType string `json:"equipment_type"`
	Quantity      int    `json:"quantity"`
}

// CapacityRecord is one (site, equipment type, date) row of projected slots.
// Absent rows mean full availability for that day.
type CapacityRecord struct {
	ID             int64     `json:"id"`
	SiteID         int64     `json:"site_id"`
	EquipmentType  string    `json:"equipment_type"`
	Date           time.Time `json:"date"`
	TotalCapacity  int       `json:"total_capacity"`
	AvailableSlots int       `json:"available_slots"`
}
