package patient

import (
	"strings"

	"github.com/clinic/dashboard/internal/platform/query"
)

const (
	tablePatients     = "patients"
	tableAppointments = "appointments"

	// NotScheduled stands in for appointment fields when a patient has
	// no appointment.
	NotScheduled = "Não agendado"
)

var patientColumns = []string{
	"id", "name", "cpf", "phone", "email", "gender", "birth_date", "status",
	"specialty", "professional", "health_plan", "appointment_time", "father_name", "created_at",
}

var appointmentColumns = []string{"id", "patient_id", "date", "time", "status"}

// PatientRow maps to the patients table.
type PatientRow struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	CPF             string `db:"cpf" json:"cpf"`
	Phone           string `db:"phone" json:"phone"`
	Email           string `db:"email" json:"email"`
	Gender          string `db:"gender" json:"gender"`
	BirthDate       string `db:"birth_date" json:"birth_date"`
	Status          string `db:"status" json:"status"`
	Specialty       string `db:"specialty" json:"specialty"`
	Professional    string `db:"professional" json:"professional"`
	HealthPlan      string `db:"health_plan" json:"health_plan"`
	AppointmentTime string `db:"appointment_time" json:"appointment_time"`
	FatherName      string `db:"father_name" json:"father_name"`
	CreatedAt       string `db:"created_at" json:"created_at"`
}

// Appointment maps to the appointments table.
type Appointment struct {
	ID        string `db:"id" json:"id"`
	PatientID string `db:"patient_id" json:"patient_id"`
	Date      string `db:"date" json:"date"`
	Time      string `db:"time" json:"time"`
	Status    string `db:"status" json:"status"`
}

// Record is the display-ready view of a patient and their most recent
// appointment. Lookup-resolved fields are never empty.
type Record struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CPF               string `json:"cpf"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Gender            string `json:"gender"`
	BirthDate         string `json:"birthDate"`
	Age               *int   `json:"age,omitempty"`
	FatherName        string `json:"fatherName"`
	Status            string `json:"status"`
	Specialty         string `json:"specialty"`
	Professional      string `json:"professional"`
	HealthPlan        string `json:"healthPlan"`
	AppointmentTime   string `json:"appointmentTime"`
	Date              string `json:"date"`
	AppointmentStatus string `json:"appointmentStatus"`
}

func (r Record) clone() Record {
	if r.Age != nil {
		age := *r.Age
		r.Age = &age
	}
	return r
}

func cloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.clone()
	}
	return out
}

func patientFromRow(r query.Row) PatientRow {
	return PatientRow{
		ID:              r.String("id"),
		Name:            r.String("name"),
		CPF:             r.String("cpf"),
		Phone:           r.String("phone"),
		Email:           r.String("email"),
		Gender:          r.String("gender"),
		BirthDate:       r.String("birth_date"),
		Status:          r.String("status"),
		Specialty:       r.String("specialty"),
		Professional:    r.String("professional"),
		HealthPlan:      r.String("health_plan"),
		AppointmentTime: clockTime(r.String("appointment_time")),
		FatherName:      r.String("father_name"),
		CreatedAt:       r.String("created_at"),
	}
}

func appointmentFromRow(r query.Row) Appointment {
	return Appointment{
		ID:        r.String("id"),
		PatientID: r.String("patient_id"),
		Date:      r.String("date"),
		Time:      clockTime(r.String("time")),
		Status:    r.String("status"),
	}
}

// clockTime trims "HH:MM:SS[.ffffff]" as returned by Postgres time
// columns down to "HH:MM" and zero-pads "H:MM". Anything else is returned
// trimmed.
func clockTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 4 && s[1] == ':' {
		s = "0" + s
	}
	if len(s) >= 5 && s[2] == ':' {
		return s[:5]
	}
	return s
}
