package db

import (
	"context"
	"database/sql"
	"time"
)

// Row structs mirror the relational schema one to one; the store layer maps
// them onto internal/models.

type Site struct {
	ID        int64
	Name      string
	Address   sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Facility struct {
	ID            int64
	SiteID        int64
	EquipmentType string
	Quantity      int32
}

type Radiologist struct {
	ID         string
	FirstName  string
	LastName   string
	Status     string
	HomeSiteID sql.NullInt64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Queries mimics sqlc-generated code for the plain CRUD paths; bespoke
// routing queries live in the store on the raw connection.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

func (q *Queries) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name, address, created_at, updated_at FROM sites ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (q *Queries) ListRadiologists(ctx context.Context) ([]Radiologist, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, first_name, last_name, status, home_site_id, created_at, updated_at FROM radiologists ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Radiologist
	for rows.Next() {
		var r Radiologist
		if err := rows.Scan(&r.ID, &r.FirstName, &r.LastName, &r.Status, &r.HomeSiteID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListFacilitiesBySite(ctx context.Context, siteID int64) ([]Facility, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, site_id, equipment_type, quantity FROM facilities WHERE site_id = $1", siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Facility
	for rows.Next() {
		var f Facility
		if err := rows.Scan(&f.ID, &f.SiteID, &f.EquipmentType, &f.Quantity); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
