package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinic/dashboard/internal/platform/query"
)

var ErrNotFound = errors.New("patient not found")

type Repository interface {
	ListPatients(ctx context.Context) ([]PatientRow, error)
	GetPatient(ctx context.Context, id string) (*PatientRow, error)
	ListAppointments(ctx context.Context, patientIDs []string) ([]Appointment, error)
	LatestAppointment(ctx context.Context, patientID string) (*Appointment, error)
}

type storeRepo struct {
	store query.Datastore
}

// NewStoreRepository reads patients and appointments through any
// query.Datastore backend.
func NewStoreRepository(store query.Datastore) Repository {
	return &storeRepo{store: store}
}

func (r *storeRepo) ListPatients(ctx context.Context) ([]PatientRow, error) {
	rows, err := r.store.Select(ctx, query.Select{
		Table:   tablePatients,
		Columns: patientColumns,
		OrderBy: []query.Order{query.Desc("created_at")},
	})
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	out := make([]PatientRow, len(rows))
	for i, row := range rows {
		out[i] = patientFromRow(row)
	}
	return out, nil
}

func (r *storeRepo) GetPatient(ctx context.Context, id string) (*PatientRow, error) {
	rows, err := r.store.Select(ctx, query.Select{
		Table:   tablePatients,
		Columns: patientColumns,
		Filters: []query.Filter{query.Eq("id", id)},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	p := patientFromRow(rows[0])
	return &p, nil
}

func (r *storeRepo) ListAppointments(ctx context.Context, patientIDs []string) ([]Appointment, error) {
	rows, err := r.store.Select(ctx, query.Select{
		Table:   tableAppointments,
		Columns: appointmentColumns,
		Filters: []query.Filter{query.In("patient_id", patientIDs...)},
		OrderBy: appointmentOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out := make([]Appointment, len(rows))
	for i, row := range rows {
		out[i] = appointmentFromRow(row)
	}
	return out, nil
}

func (r *storeRepo) LatestAppointment(ctx context.Context, patientID string) (*Appointment, error) {
	rows, err := r.store.Select(ctx, query.Select{
		Table:   tableAppointments,
		Columns: appointmentColumns,
		Filters: []query.Filter{query.Eq("patient_id", patientID)},
		OrderBy: appointmentOrder,
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("latest appointment for %s: %w", patientID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	a := appointmentFromRow(rows[0])
	return &a, nil
}

var appointmentOrder = []query.Order{query.Desc("date"), query.Desc("time")}
