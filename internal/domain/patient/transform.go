package patient

import (
	"github.com/clinic/dashboard/internal/domain/lookup"
	"github.com/clinic/dashboard/internal/platform/dates"
)

// LatestByPatient picks each patient's most recent appointment by
// (date, time), both descending. Dates in either accepted shape compare
// correctly. On an exact tie the first appointment seen wins, so input
// already ordered by the datastore is kept as is.
func LatestByPatient(appts []Appointment) map[string]Appointment {
	latest := make(map[string]Appointment, len(appts))
	for _, a := range appts {
		cur, ok := latest[a.PatientID]
		if !ok || after(a, cur) {
			latest[a.PatientID] = a
		}
	}
	return latest
}

func after(a, b Appointment) bool {
	ad, bd := sortableDate(a.Date), sortableDate(b.Date)
	if ad != bd {
		return ad > bd
	}
	return clockTime(a.Time) > clockTime(b.Time)
}

// sortableDate renders parseable dates as YYYY-MM-DD. Unparseable values
// sort before every real date.
func sortableDate(s string) string {
	t, ok := dates.Parse(s)
	if !ok {
		return ""
	}
	return t.Format(dates.StorageLayout)
}

// BuildRecord joins a patient row with its most recent appointment (nil
// when there is none) and resolves lookup ids to display names.
func BuildRecord(row PatientRow, appt *Appointment, tables lookup.Tables) Record {
	rec := Record{
		ID:                row.ID,
		Name:              row.Name,
		CPF:               row.CPF,
		Phone:             row.Phone,
		Email:             row.Email,
		Gender:            row.Gender,
		FatherName:        row.FatherName,
		Status:            row.Status,
		Specialty:         tables.Specialty(row.Specialty),
		Professional:      tables.Professional(row.Professional),
		HealthPlan:        tables.HealthPlan(row.HealthPlan),
		AppointmentTime:   NotScheduled,
		Date:              NotScheduled,
		AppointmentStatus: NotScheduled,
	}

	if birth, ok := dates.FormatForStorage(row.BirthDate); ok {
		rec.BirthDate = birth
		if age, ok := dates.CalculateAge(birth); ok && age >= 0 {
			rec.Age = &age
		}
	}

	if t := clockTime(row.AppointmentTime); t != "" {
		rec.AppointmentTime = t
	}
	if appt == nil {
		return rec
	}
	if t := clockTime(appt.Time); t != "" {
		rec.AppointmentTime = t
	}
	if appt.Date != "" {
		if d := sortableDate(appt.Date); d != "" {
			rec.Date = d
		} else {
			rec.Date = appt.Date
		}
	}
	if appt.Status != "" {
		rec.AppointmentStatus = appt.Status
	}
	return rec
}

// BuildRecords applies BuildRecord to every row, preserving row order.
func BuildRecords(rows []PatientRow, latest map[string]Appointment, tables lookup.Tables) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		var appt *Appointment
		if a, ok := latest[row.ID]; ok {
			appt = &a
		}
		out[i] = BuildRecord(row, appt, tables)
	}
	return out
}
