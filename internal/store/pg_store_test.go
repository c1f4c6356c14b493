package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"radiology-routing/internal/models"
	"radiology-routing/internal/routing"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPostgresStore(conn), mock
}

func orderRow(id int64, patientID string) *sqlmock.Rows {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "patient_id", "patient_name", "site_id", "order_type", "body_part",
		"priority", "priority_score", "is_time_sensitive", "time_sensitive_deadline", "specialty_required",
		"ordering_physician", "status", "assigned_site_id", "routing_reason", "routing_score",
		"scheduled_date", "scheduled_time", "created_at", "updated_at",
	}).AddRow(id, patientID, "Jane Roe", int64(1), "MRI", "knee",
		"urgent", 7, false, nil, "MSK",
		"Dr. Lee", "pending", nil, nil, nil,
		nil, "", now, now)
}

func TestGetWorkItem_Order(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM orders WHERE id").WithArgs(int64(10)).WillReturnRows(orderRow(10, "pat-1"))

	item, err := s.GetWorkItem(context.Background(), models.WorkItemRef{Kind: models.KindOrder, ID: 10})
	require.NoError(t, err)
	require.Equal(t, models.KindOrder, item.Ref.Kind)
	require.Equal(t, "pat-1", item.PatientID)
	require.Equal(t, "MRI", item.OrderType)
	require.Equal(t, 7, item.PriorityScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrder_MissingRowIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("FROM orders WHERE id").WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetOrder(context.Background(), 99)
	require.ErrorIs(t, err, routing.ErrNotFound)
}

func TestUpdateAssignment_ZeroRowsIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE orders SET assigned_site_id").
		WithArgs(int64(2), "reason", 80, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateAssignment(context.Background(), models.WorkItemRef{Kind: models.KindOrder, ID: 99}, 2, "reason", 80)
	require.ErrorIs(t, err, routing.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAssignment_RequisitionTargetsRequisitionsTable(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE requisitions SET assigned_site_id").
		WithArgs(int64(2), "reason", 80, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateAssignment(context.Background(), models.WorkItemRef{Kind: models.KindRequisition, ID: 5}, 2, "reason", 80)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSpecialtyMatches(t *testing.T) {
	s, mock := newMockStore(t)
	ids := []string{"rad1", "rad2"}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM radiologist_specialties`).
		WithArgs(pq.Array(ids), "MSK").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := s.CountSpecialtyMatches(context.Background(), ids, "MSK")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestGetCapacity(t *testing.T) {
	s, mock := newMockStore(t)
	day := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM site_capacity").
		WithArgs(int64(1), "MRI", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "site_id", "equipment_type", "date", "total_capacity", "available_slots"}).
			AddRow(1, 1, "MRI", day, 20, 12))

	records, err := s.GetCapacity(context.Background(), 1, "MRI", day, day.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 12, records[0].AvailableSlots)
	require.Equal(t, 20, records[0].TotalCapacity)
}

func TestPendingGroupsByPatientSite_ScansArrays(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("GROUP BY patient_id, site_id").
		WillReturnRows(sqlmock.NewRows([]string{"patient_id", "site_id", "ids", "types", "physicians"}).
			AddRow("pat-1", int64(1), []byte("{10,11}"), []byte("{CT,MRI}"), []byte(`{"Dr. Lee","Dr. Lee"}`)))

	groups, err := s.PendingGroupsByPatientSite(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, []int64{10, 11}, groups[0].OrderIDs)
	require.Equal(t, []string{"CT", "MRI"}, groups[0].OrderTypes)
	require.Equal(t, []string{"Dr. Lee", "Dr. Lee"}, groups[0].Physicians)
}

func TestTransaction_CommitAfterAllSteps(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO combined_orders").
		WithArgs("2025-03-14", "09:00", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO combined_order_items").
		WithArgs(int64(42), int64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE orders SET status = 'scheduled'").
		WithArgs("2025-03-14", "09:00", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	visitID, err := tx.InsertCombinedVisit(context.Background(), &models.CombinedVisit{
		CombinedDate: "2025-03-14", CombinedTime: "09:00", SiteID: 1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), visitID)
	require.NoError(t, tx.LinkOrder(context.Background(), visitID, 10))
	require.NoError(t, tx.MarkOrderScheduled(context.Background(), 10, "2025-03-14", "09:00"))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_MarkMissingOrderFailsBeforeCommit(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status = 'scheduled'").
		WithArgs("2025-03-14", "09:00", int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)

	err = tx.MarkOrderScheduled(context.Background(), 99, "2025-03-14", "09:00")
	require.ErrorIs(t, err, routing.ErrNotFound)
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingUnassigned_MergesOrdersAndRequisitions(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM orders WHERE status = 'pending' AND assigned_site_id IS NULL").
		WillReturnRows(orderRow(10, "pat-1"))
	mock.ExpectQuery("FROM requisitions WHERE status = 'pending' AND assigned_site_id IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "requisition_number", "patient_id", "patient_name", "patient_email",
			"order_type", "body_part", "clinical_indication", "priority", "priority_score",
			"is_time_sensitive", "time_sensitive_deadline", "referring_physician", "status",
			"assigned_site_id", "routing_reason", "routing_score", "created_at", "updated_at",
		}).AddRow(3, "REQ-1", "pat-2", "John Doe", "jd@example.com",
			"CT", "chest", "persistent cough", "routine", 5,
			false, nil, "Dr. Chen", "pending",
			nil, nil, nil, now, now))

	items, err := s.ListPendingUnassigned(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, models.KindOrder, items[0].Ref.Kind)
	require.Equal(t, models.KindRequisition, items[1].Ref.Kind)
	require.Equal(t, "pat-2", items[1].PatientID)
	require.NoError(t, mock.ExpectationsWereMet())
}
