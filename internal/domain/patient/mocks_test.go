package patient

import (
	"context"
	"sync/atomic"
)

type mockRepo struct {
	ListPatientsFunc      func(ctx context.Context) ([]PatientRow, error)
	GetPatientFunc        func(ctx context.Context, id string) (*PatientRow, error)
	ListAppointmentsFunc  func(ctx context.Context, patientIDs []string) ([]Appointment, error)
	LatestAppointmentFunc func(ctx context.Context, patientID string) (*Appointment, error)

	ListPatientsCalls      int32
	GetPatientCalls        int32
	ListAppointmentsCalls  int32
	LatestAppointmentCalls int32
}

func (m *mockRepo) ListPatients(ctx context.Context) ([]PatientRow, error) {
	atomic.AddInt32(&m.ListPatientsCalls, 1)
	if m.ListPatientsFunc != nil {
		return m.ListPatientsFunc(ctx)
	}
	return nil, nil
}

func (m *mockRepo) GetPatient(ctx context.Context, id string) (*PatientRow, error) {
	atomic.AddInt32(&m.GetPatientCalls, 1)
	if m.GetPatientFunc != nil {
		return m.GetPatientFunc(ctx, id)
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListAppointments(ctx context.Context, patientIDs []string) ([]Appointment, error) {
	atomic.AddInt32(&m.ListAppointmentsCalls, 1)
	if m.ListAppointmentsFunc != nil {
		return m.ListAppointmentsFunc(ctx, patientIDs)
	}
	return nil, nil
}

func (m *mockRepo) LatestAppointment(ctx context.Context, patientID string) (*Appointment, error) {
	atomic.AddInt32(&m.LatestAppointmentCalls, 1)
	if m.LatestAppointmentFunc != nil {
		return m.LatestAppointmentFunc(ctx, patientID)
	}
	return nil, nil
}

func calls(n *int32) int32 { return atomic.LoadInt32(n) }

// seededRepo serves two patients, p1 with two appointments and p2 with none.
func seededRepo() *mockRepo {
	patients := []PatientRow{
		{ID: "p1", Name: "Maria Silva", BirthDate: "12/04/1990", Specialty: "2", Professional: "1", HealthPlan: "unimed", Status: "Ativo"},
		{ID: "p2", Name: "João Souza", AppointmentTime: "15:30", Status: "Ativo"},
	}
	return &mockRepo{
		ListPatientsFunc: func(ctx context.Context) ([]PatientRow, error) {
			return patients, nil
		},
		GetPatientFunc: func(ctx context.Context, id string) (*PatientRow, error) {
			for _, p := range patients {
				if p.ID == id {
					p := p
					return &p, nil
				}
			}
			return nil, ErrNotFound
		},
		ListAppointmentsFunc: func(ctx context.Context, ids []string) ([]Appointment, error) {
			return []Appointment{
				{ID: "a2", PatientID: "p1", Date: "2024-02-01", Time: "08:00", Status: "Confirmado"},
				{ID: "a1", PatientID: "p1", Date: "2024-01-01", Time: "09:00", Status: "Realizado"},
			}, nil
		},
		LatestAppointmentFunc: func(ctx context.Context, id string) (*Appointment, error) {
			if id != "p1" {
				return nil, nil
			}
			return &Appointment{ID: "a2", PatientID: "p1", Date: "2024-02-01", Time: "08:00", Status: "Confirmado"}, nil
		},
	}
}
