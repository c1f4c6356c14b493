package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"radiology-routing/internal/combining"
	"radiology-routing/internal/db"
	"radiology-routing/internal/models"
	"radiology-routing/internal/routing"
)

// PostgresStore implements the routing, combining and workload store
// interfaces over one connection pool.
type PostgresStore struct {
	q  *db.Queries
	db *sql.DB // raw handle for the bespoke routing queries
}

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{q: db.New(conn), db: conn}
}

var (
	_ routing.DataStore = (*PostgresStore)(nil)
	_ combining.Store   = (*PostgresStore)(nil)
)

// -- Inventory / capacity / staffing / backlog queries --

func (s *PostgresStore) GetFacilitiesBySite(ctx context.Context, siteID int64) ([]*models.Facility, error) {
	rows, err := s.q.ListFacilitiesBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	facilities := make([]*models.Facility, 0, len(rows))
	for _, r := range rows {
		facilities = append(facilities, &models.Facility{
			ID:            r.ID,
			SiteID:        r.SiteID,
			EquipmentType: r.EquipmentType,
			Quantity:      int(r.Quantity),
		})
	}
	return facilities, nil
}

func (s *PostgresStore) GetCapacity(ctx context.Context, siteID int64, equipmentType string, from, to time.Time) ([]*models.CapacityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, equipment_type, date, total_capacity, available_slots
		 FROM site_capacity
		 WHERE site_id = $1 AND equipment_type = $2 AND date BETWEEN $3 AND $4
		 ORDER BY date`,
		siteID, equipmentType, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.CapacityRecord
	for rows.Next() {
		var r models.CapacityRecord
		if err := rows.Scan(&r.ID, &r.SiteID, &r.EquipmentType, &r.Date, &r.TotalCapacity, &r.AvailableSlots); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) GetSchedules(ctx context.Context, siteID int64, from, to time.Time) ([]*models.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, radiologist_id, site_id, date, COALESCE(start_time, ''), COALESCE(end_time, ''), status
		 FROM schedules
		 WHERE site_id = $1 AND date BETWEEN $2 AND $3`,
		siteID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		var sch models.Schedule
		if err := rows.Scan(&sch.ID, &sch.RadiologistID, &sch.SiteID, &sch.Date, &sch.StartTime, &sch.EndTime, &sch.Status); err != nil {
			return nil, err
		}
		schedules = append(schedules, &sch)
	}
	return schedules, rows.Err()
}

func (s *PostgresStore) ListSchedules(ctx context.Context, from, to time.Time) ([]*models.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, radiologist_id, site_id, date, COALESCE(start_time, ''), COALESCE(end_time, ''), status
		 FROM schedules
		 WHERE date BETWEEN $1 AND $2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		var sch models.Schedule
		if err := rows.Scan(&sch.ID, &sch.RadiologistID, &sch.SiteID, &sch.Date, &sch.StartTime, &sch.EndTime, &sch.Status); err != nil {
			return nil, err
		}
		schedules = append(schedules, &sch)
	}
	return schedules, rows.Err()
}

func (s *PostgresStore) CountSpecialtyMatches(ctx context.Context, radiologistIDs []string, specialty string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM radiologist_specialties
		 WHERE radiologist_id = ANY($1) AND specialty = $2`,
		pq.Array(radiologistIDs), specialty).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountPendingAssigned(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE assigned_site_id = $1 AND status = 'pending'`,
		siteID).Scan(&count)
	return count, err
}

func (s *PostgresStore) CountScheduled(ctx context.Context, siteID int64, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders
		 WHERE assigned_site_id = $1 AND status = 'scheduled' AND scheduled_date BETWEEN $2 AND $3`,
		siteID, from, to).Scan(&count)
	return count, err
}

// -- Work items --

const orderColumns = `id, patient_id, COALESCE(patient_name, ''), site_id, order_type, COALESCE(body_part, ''),
	priority, priority_score, is_time_sensitive, time_sensitive_deadline, COALESCE(specialty_required, ''),
	COALESCE(ordering_physician, ''), status, assigned_site_id, routing_reason, routing_score,
	scheduled_date, COALESCE(scheduled_time, ''), created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.PatientID, &o.PatientName, &o.SiteID, &o.OrderType, &o.BodyPart,
		&o.Priority, &o.PriorityScore, &o.IsTimeSensitive, &o.Deadline, &o.SpecialtyRequired,
		&o.OrderingPhysician, &o.Status, &o.AssignedSiteID, &o.RoutingReason, &o.RoutingScore,
		&o.ScheduledDate, &o.ScheduledTime, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const requisitionColumns = `id, requisition_number, patient_id, COALESCE(patient_name, ''), COALESCE(patient_email, ''),
	order_type, COALESCE(body_part, ''), COALESCE(clinical_indication, ''), priority, priority_score,
	is_time_sensitive, time_sensitive_deadline, COALESCE(referring_physician, ''), status,
	assigned_site_id, routing_reason, routing_score, created_at, updated_at`

func scanRequisition(row interface{ Scan(dest ...any) error }) (*models.Requisition, error) {
	var r models.Requisition
	err := row.Scan(&r.ID, &r.RequisitionNumber, &r.PatientID, &r.PatientName, &r.PatientEmail,
		&r.OrderType, &r.BodyPart, &r.ClinicalIndication, &r.Priority, &r.PriorityScore,
		&r.IsTimeSensitive, &r.Deadline, &r.ReferringPhysician, &r.Status,
		&r.AssignedSiteID, &r.RoutingReason, &r.RoutingScore, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, routing.ErrNotFound)
	}
	return o, err
}

func (s *PostgresStore) GetRequisition(ctx context.Context, id int64) (*models.Requisition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id = $1`, id)
	r, err := scanRequisition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requisition %d: %w", id, routing.ErrNotFound)
	}
	return r, err
}

func (s *PostgresStore) GetWorkItem(ctx context.Context, ref models.WorkItemRef) (*models.WorkItem, error) {
	switch ref.Kind {
	case models.KindRequisition:
		r, err := s.GetRequisition(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return r.AsWorkItem(), nil
	default:
		o, err := s.GetOrder(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return o.AsWorkItem(), nil
	}
}

func (s *PostgresStore) ListSites(ctx context.Context) ([]*models.Site, error) {
	rows, err := s.q.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	sites := make([]*models.Site, 0, len(rows))
	for _, r := range rows {
		sites = append(sites, &models.Site{
			ID:        r.ID,
			Name:      r.Name,
			Address:   r.Address.String,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return sites, nil
}

func (s *PostgresStore) ListRadiologists(ctx context.Context) ([]*models.Radiologist, error) {
	rows, err := s.q.ListRadiologists(ctx)
	if err != nil {
		return nil, err
	}
	radiologists := make([]*models.Radiologist, 0, len(rows))
	for _, r := range rows {
		rad := &models.Radiologist{
			ID:        r.ID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
		if r.HomeSiteID.Valid {
			rad.HomeSiteID = &r.HomeSiteID.Int64
		}
		radiologists = append(radiologists, rad)
	}
	return radiologists, nil
}

func (s *PostgresStore) UpdateAssignment(ctx context.Context, ref models.WorkItemRef, siteID int64, reason string, score int) error {
	table := "orders"
	if ref.Kind == models.KindRequisition {
		table = "requisitions"
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+table+` SET assigned_site_id = $1, routing_reason = $2, routing_score = $3, updated_at = CURRENT_TIMESTAMP WHERE id = $4`,
		siteID, reason, score, ref.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %d: %w", ref.Kind, ref.ID, routing.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertRoutingDecision(ctx context.Context, d *models.RoutingDecision) error {
	return s.db.QueryRowContext(ctx,
		`INSERT INTO order_routing_history (work_item_kind, work_item_id, original_site_id, routed_site_id, routing_reason, routing_score)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		d.WorkItem.Kind, d.WorkItem.ID, d.OriginalSiteID, d.RoutedSiteID, d.Reason, d.Score).
		Scan(&d.ID, &d.CreatedAt)
}

func (s *PostgresStore) ListRoutingDecisions(ctx context.Context, ref models.WorkItemRef) ([]*models.RoutingDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, work_item_kind, work_item_id, original_site_id, routed_site_id, routing_reason, routing_score, created_at
		 FROM order_routing_history
		 WHERE work_item_kind = $1 AND work_item_id = $2
		 ORDER BY created_at DESC`,
		ref.Kind, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*models.RoutingDecision
	for rows.Next() {
		var d models.RoutingDecision
		if err := rows.Scan(&d.ID, &d.WorkItem.Kind, &d.WorkItem.ID, &d.OriginalSiteID, &d.RoutedSiteID, &d.Reason, &d.Score, &d.CreatedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

func (s *PostgresStore) ListPendingUnassigned(ctx context.Context) ([]*models.WorkItem, error) {
	var items []*models.WorkItem

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = 'pending' AND assigned_site_id IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o.AsWorkItem())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reqRows, err := s.db.QueryContext(ctx,
		`SELECT `+requisitionColumns+` FROM requisitions WHERE status = 'pending' AND assigned_site_id IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer reqRows.Close()
	for reqRows.Next() {
		r, err := scanRequisition(reqRows)
		if err != nil {
			return nil, err
		}
		items = append(items, r.AsWorkItem())
	}
	return items, reqRows.Err()
}

func (s *PostgresStore) ListTimeSensitiveDue(ctx context.Context, before time.Time) ([]*models.WorkItem, error) {
	var items []*models.WorkItem

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE is_time_sensitive = TRUE AND time_sensitive_deadline <= $1 AND status IN ('pending', 'scheduled')
		 ORDER BY time_sensitive_deadline ASC`,
		before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o.AsWorkItem())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reqRows, err := s.db.QueryContext(ctx,
		`SELECT `+requisitionColumns+` FROM requisitions
		 WHERE is_time_sensitive = TRUE AND time_sensitive_deadline <= $1 AND status = 'pending'
		 ORDER BY time_sensitive_deadline ASC`,
		before)
	if err != nil {
		return nil, err
	}
	defer reqRows.Close()
	for reqRows.Next() {
		r, err := scanRequisition(reqRows)
		if err != nil {
			return nil, err
		}
		items = append(items, r.AsWorkItem())
	}
	return items, reqRows.Err()
}

// -- Intake --

func (s *PostgresStore) CreateOrder(ctx context.Context, o *models.Order) error {
	o.PriorityScore = models.DerivePriorityScore(o.Priority, o.IsTimeSensitive)
	if o.Status == "" {
		o.Status = models.StatusPending
	}
	return s.db.QueryRowContext(ctx,
		`INSERT INTO orders (patient_id, patient_name, site_id, order_type, body_part, priority, priority_score,
			is_time_sensitive, time_sensitive_deadline, specialty_required, ordering_physician, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		o.PatientID, o.PatientName, o.SiteID, o.OrderType, o.BodyPart, o.Priority, o.PriorityScore,
		o.IsTimeSensitive, o.Deadline, o.SpecialtyRequired, o.OrderingPhysician, o.Status).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (s *PostgresStore) CreateRequisition(ctx context.Context, r *models.Requisition) error {
	r.PriorityScore = models.DerivePriorityScore(r.Priority, r.IsTimeSensitive)
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	return s.db.QueryRowContext(ctx,
		`INSERT INTO requisitions (requisition_number, patient_id, patient_name, patient_email, order_type, body_part,
			clinical_indication, priority, priority_score, is_time_sensitive, time_sensitive_deadline, referring_physician, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, created_at, updated_at`,
		r.RequisitionNumber, r.PatientID, r.PatientName, r.PatientEmail, r.OrderType, r.BodyPart,
		r.ClinicalIndication, r.Priority, r.PriorityScore, r.IsTimeSensitive, r.Deadline, r.ReferringPhysician, r.Status).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
}

func (s *PostgresStore) ListPendingOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// -- Combining --

func (s *PostgresStore) PendingGroupsByPatientSite(ctx context.Context) ([]*models.CombinableGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT patient_id, site_id,
			ARRAY_AGG(id ORDER BY created_at),
			ARRAY_AGG(order_type ORDER BY created_at),
			ARRAY_AGG(COALESCE(ordering_physician, '') ORDER BY created_at)
		 FROM orders
		 WHERE status = 'pending' AND site_id IS NOT NULL
		 GROUP BY patient_id, site_id
		 HAVING COUNT(*) > 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.CombinableGroup
	for rows.Next() {
		var g models.CombinableGroup
		var ids pq.Int64Array
		var types, physicians pq.StringArray
		if err := rows.Scan(&g.PatientID, &g.SiteID, &ids, &types, &physicians); err != nil {
			return nil, err
		}
		g.OrderIDs = ids
		g.OrderTypes = types
		g.Physicians = physicians
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

type pgTx struct {
	tx *sql.Tx
}

var _ combining.Tx = (*pgTx)(nil)

func (s *PostgresStore) Begin(ctx context.Context) (combining.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (t *pgTx) InsertCombinedVisit(ctx context.Context, v *models.CombinedVisit) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO combined_orders (combined_date, combined_time, site_id, status)
		 VALUES ($1, $2, $3, 'scheduled')
		 RETURNING id`,
		v.CombinedDate, v.CombinedTime, v.SiteID).Scan(&id)
	return id, err
}

func (t *pgTx) LinkOrder(ctx context.Context, visitID, orderID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO combined_order_items (combined_order_id, order_id) VALUES ($1, $2)`,
		visitID, orderID)
	return err
}

func (t *pgTx) MarkOrderScheduled(ctx context.Context, orderID int64, date, timeOfDay string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = 'scheduled', scheduled_date = $1, scheduled_time = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`,
		date, timeOfDay, orderID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("order %d: %w", orderID, routing.ErrNotFound)
	}
	return nil
}

func (t *pgTx) Commit() error   { return t.tx.Commit() }
func (t *pgTx) Rollback() error { return t.tx.Rollback() }
