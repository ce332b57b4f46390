package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-server/internal/domain"
)

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &PostgresStore{db: db}, mock, db
}

func TestNewPostgresStore_CreatesSchema(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS visits").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	assert.NotNil(t, store)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgresStore_NilConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_SaveVisit(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	ga := 28
	hb := 10.8
	visit := &domain.Visit{
		VisitDate:      "2026-02-04",
		GestationalAge: &ga,
		BloodPressure:  &domain.BloodPressure{Systolic: 142, Diastolic: 92},
		Hemoglobin:     &hb,
		Proteinuria:    "+1",
	}

	mock.ExpectExec("INSERT INTO visits").
		WithArgs("patient-001", "2026-02-04", 28, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.SaveVisit(context.Background(), "patient-001", visit)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveVisit_NilRejected(t *testing.T) {
	store, _, db := setupMockStore(t)
	defer db.Close()

	err := store.SaveVisit(context.Background(), "patient-001", nil)
	assert.Error(t, err)
}

func TestPostgresStore_History(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	first, err := json.Marshal(domain.Visit{VisitDate: "2026-01-10"})
	require.NoError(t, err)
	second, err := json.Marshal(domain.Visit{VisitDate: "2026-02-07"})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"payload"}).
		AddRow(first).
		AddRow(second)

	mock.ExpectQuery("SELECT payload FROM visits").
		WithArgs("patient-A").
		WillReturnRows(rows)

	visits, err := store.History(context.Background(), "patient-A")

	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "2026-01-10", visits[0].VisitDate)
	assert.Equal(t, "2026-02-07", visits[1].VisitDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_History_BadPayload(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"payload"}).AddRow([]byte("{not json"))

	mock.ExpectQuery("SELECT payload FROM visits").
		WithArgs("patient-001").
		WillReturnRows(rows)

	_, err := store.History(context.Background(), "patient-001")
	assert.Error(t, err)
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM visits`).
		WithArgs("patient-001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.Count(context.Background(), "patient-001")

	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM visits").
		WithArgs("patient-001").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := store.Delete(context.Background(), "patient-001")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExportJSON(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	payload, err := json.Marshal(domain.Visit{VisitDate: "2026-02-04"})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM visits").
		WithArgs("patient-001").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	data, err := store.ExportJSON(context.Background(), "patient-001")

	require.NoError(t, err)

	var export VisitExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, exportVersion, export.Version)
	assert.Equal(t, "patient-001", export.PatientID)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Visits, 1)
	assert.Equal(t, "2026-02-04", export.Visits[0].VisitDate)
}

func TestPostgresStore_ImportJSON(t *testing.T) {
	store, mock, db := setupMockStore(t)
	defer db.Close()

	doc := `{"version": "1.0", "patient_id": "patient-001", "count": 2, "visits": [{"visit_date": "2026-01-10"}, {"visit_date": "2026-02-07"}]}`

	mock.ExpectExec("INSERT INTO visits").
		WithArgs("patient-001", "2026-01-10", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO visits").
		WithArgs("patient-001", "2026-02-07", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := store.ImportJSON(context.Background(), "patient-001", []byte(doc))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
