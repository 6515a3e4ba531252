package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/clinic/dashboard/internal/domain/lookup"
	"github.com/clinic/dashboard/internal/platform/db"
	"github.com/clinic/dashboard/internal/platform/query"
)

type recordingStore struct {
	queries []query.Select
	rows    []query.Row
	err     error
}

func (s *recordingStore) Select(ctx context.Context, q query.Select) ([]query.Row, error) {
	s.queries = append(s.queries, q)
	return s.rows, s.err
}

func TestStoreRepository_QueryShapes(t *testing.T) {
	store := &recordingStore{}
	repo := NewStoreRepository(store)
	ctx := context.Background()

	repo.ListPatients(ctx)
	repo.ListAppointments(ctx, []string{"p1", "p2"})
	repo.LatestAppointment(ctx, "p1")

	if len(store.queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(store.queries))
	}

	list := store.queries[0]
	if list.Table != "patients" || len(list.OrderBy) != 1 || list.OrderBy[0] != query.Desc("created_at") {
		t.Errorf("unexpected patient listing query: %+v", list)
	}

	appts := store.queries[1]
	if appts.Table != "appointments" || appts.Filters[0].Op != query.OpIn || len(appts.Filters[0].Values) != 2 {
		t.Errorf("unexpected appointment query: %+v", appts)
	}
	if appts.OrderBy[0] != query.Desc("date") || appts.OrderBy[1] != query.Desc("time") {
		t.Errorf("expected date desc, time desc ordering, got %+v", appts.OrderBy)
	}

	latest := store.queries[2]
	if latest.Limit != 1 || latest.Filters[0].Column != "patient_id" || latest.Filters[0].Value != "p1" {
		t.Errorf("unexpected latest appointment query: %+v", latest)
	}
}

func TestStoreRepository_GetPatientNotFound(t *testing.T) {
	repo := NewStoreRepository(&recordingStore{})

	_, err := repo.GetPatient(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	appt, err := repo.LatestAppointment(context.Background(), "missing")
	if err != nil || appt != nil {
		t.Errorf("expected (nil, nil) without appointments, got (%v, %v)", appt, err)
	}
}

func TestStoreRepository_WrapsBackendErrors(t *testing.T) {
	repo := NewStoreRepository(&recordingStore{err: query.Unavailable(errors.New("timeout"))})

	_, err := repo.ListPatients(context.Background())
	if !errors.Is(err, query.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	_, err = repo.GetPatient(context.Background(), "p1")
	if errors.Is(err, ErrNotFound) {
		t.Error("backend failure must not be reported as not found")
	}
}

func TestService_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`
		CREATE TABLE patients (
			id TEXT PRIMARY KEY, name TEXT, cpf TEXT, phone TEXT, email TEXT, gender TEXT,
			birth_date TEXT, status TEXT, specialty TEXT, professional TEXT, health_plan TEXT,
			appointment_time TEXT, father_name TEXT, created_at TEXT
		);
		CREATE TABLE appointments (id TEXT, patient_id TEXT, date TEXT, time TEXT, status TEXT);
		INSERT INTO patients VALUES
			('p1', 'Maria Silva', '111', '', '', 'F', '12/04/1990', 'Ativo', '2', '1', 'unimed', NULL, NULL, '2024-01-01T10:00:00Z'),
			('p2', 'João Souza', '222', '', '', 'M', NULL, 'Ativo', '99', NULL, NULL, '15:30', NULL, '2024-03-01T10:00:00Z');
		INSERT INTO appointments VALUES
			('a1', 'p1', '2024-01-01', '09:00', 'Realizado'),
			('a2', 'p1', '2024-02-01', '08:00', 'Confirmado'),
			('a3', 'p1', '2024-02-01', '07:30', 'Cancelado');`)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewService(NewStoreRepository(db.NewSQLStore(sqlDB, query.SQLite)), lookup.Default())

	recs := svc.GetAll(ctx, false)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "p2" {
		t.Errorf("expected newest patient first, got %s", recs[0].ID)
	}
	if recs[0].Specialty != lookup.FallbackSpecialty || recs[0].Professional != lookup.FallbackProfessional {
		t.Errorf("expected fallbacks for p2, got %q / %q", recs[0].Specialty, recs[0].Professional)
	}
	if recs[0].AppointmentTime != "15:30" || recs[0].AppointmentStatus != NotScheduled {
		t.Errorf("unexpected p2 appointment fields: %+v", recs[0])
	}

	maria := recs[1]
	if maria.Date != "2024-02-01" || maria.AppointmentTime != "08:00" || maria.AppointmentStatus != "Confirmado" {
		t.Errorf("expected latest appointment a2, got %+v", maria)
	}
	if maria.BirthDate != "1990-04-12" {
		t.Errorf("expected normalized birth date, got %q", maria.BirthDate)
	}

	one := svc.GetByID(ctx, "p1")
	if one == nil || one.AppointmentStatus != "Confirmado" {
		t.Errorf("expected p1 with latest appointment, got %+v", one)
	}
	if svc.GetByID(ctx, "p9") != nil {
		t.Error("expected nil for unknown patient")
	}
}
