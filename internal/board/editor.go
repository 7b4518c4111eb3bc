package board

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sumire/pumpplanner/internal/calendar"
	"github.com/sumire/pumpplanner/internal/domain"
	"github.com/sumire/pumpplanner/internal/validation"
)

// DefaultCreateSpanMinutes is the length of a job created by double-click.
const DefaultCreateSpanMinutes = 120

// DialogMode says whether the editor creates or edits a job.
type DialogMode string

const (
	DialogCreate DialogMode = "create"
	DialogEdit   DialogMode = "edit"
)

// Dialog is the open job editor.
type Dialog struct {
	Mode  DialogMode `json:"mode"`
	JobID string     `json:"job_id,omitempty"`
	Form  JobForm    `json:"form"`
	Error string     `json:"error,omitempty"`
}

// JobForm holds the editable fields of a job as entered in the editor.
type JobForm struct {
	StartTime           string           `json:"start_time" validate:"required,clock"`
	EndTime             string           `json:"end_time" validate:"omitempty,clock"`
	TravelTimeMinutes   int              `json:"travel_time_minutes" validate:"min=0,max=720"`
	DriverID            string           `json:"driver_id"`
	PumpTypeID          string           `json:"pump_type_id"`
	ClientID            string           `json:"client_id"`
	PriceListID         string           `json:"price_list_id"`
	Status              domain.JobStatus `json:"status" validate:"required,job_status"`
	AddressStreet       string           `json:"address_street" validate:"max=200"`
	AddressCity         string           `json:"address_city" validate:"max=100"`
	AddressPostalCode   string           `json:"address_postal_code" validate:"max=20"`
	VolumeM3            *float64         `json:"volume_m3,omitempty" validate:"omitempty,min=0"`
	PipeLengthM         *float64         `json:"pipe_length_m,omitempty" validate:"omitempty,min=0"`
	Notes               string           `json:"notes" validate:"max=2000"`
	DriverNotes         string           `json:"driver_notes" validate:"max=2000"`
	ProprietaryConcrete bool             `json:"proprietary_concrete"`
}

// NewCreateForm returns a blank form pre-filled with a time range and column.
func NewCreateForm(start, end, driverID string) JobForm {
	return JobForm{
		StartTime: start,
		EndTime:   end,
		DriverID:  driverID,
		Status:    domain.JobStatusToPlan,
	}
}

// FormFromJob fills the form with a persisted job.
func FormFromJob(job domain.Job) JobForm {
	return JobForm{
		StartTime:           job.StartTime,
		EndTime:             deref(job.EndTime),
		TravelTimeMinutes:   job.Travel(),
		DriverID:            deref(job.DriverID),
		PumpTypeID:          deref(job.PumpTypeID),
		ClientID:            deref(job.ClientID),
		PriceListID:         deref(job.PriceListID),
		Status:              job.Status,
		AddressStreet:       deref(job.AddressStreet),
		AddressCity:         deref(job.AddressCity),
		AddressPostalCode:   deref(job.AddressPostalCode),
		VolumeM3:            job.VolumeM3,
		PipeLengthM:         job.PipeLengthM,
		Notes:               deref(job.Notes),
		DriverNotes:         deref(job.DriverNotes),
		ProprietaryConcrete: job.ProprietaryConcrete,
	}
}

// ApplySuggestion copies a geocoded address into the address fields.
func (f *JobForm) ApplySuggestion(a domain.Address) {
	f.AddressStreet = a.Street
	f.AddressCity = a.City
	f.AddressPostalCode = a.PostalCode
}

// Draft converts the form into a create request for date.
func (f JobForm) Draft(date string) domain.JobDraft {
	d := domain.JobDraft{
		JobDate:             date,
		StartTime:           f.StartTime,
		EndTime:             optional(f.EndTime),
		DriverID:            optional(f.DriverID),
		PumpTypeID:          optional(f.PumpTypeID),
		ClientID:            optional(f.ClientID),
		PriceListID:         optional(f.PriceListID),
		Status:              f.Status,
		AddressStreet:       optional(f.AddressStreet),
		AddressCity:         optional(f.AddressCity),
		AddressPostalCode:   optional(f.AddressPostalCode),
		VolumeM3:            f.VolumeM3,
		PipeLengthM:         f.PipeLengthM,
		Notes:               optional(f.Notes),
		DriverNotes:         optional(f.DriverNotes),
		ProprietaryConcrete: f.ProprietaryConcrete,
	}
	if f.TravelTimeMinutes > 0 {
		travel := f.TravelTimeMinutes
		d.TravelTimeMinutes = &travel
	}
	return d
}

// Patch converts the form into a full update. Cleared text fields are sent
// as empty strings so the store can null them.
func (f JobForm) Patch() domain.JobPatch {
	travel := f.TravelTimeMinutes
	status := f.Status
	concrete := f.ProprietaryConcrete
	return domain.JobPatch{
		StartTime:           ptr(f.StartTime),
		EndTime:             ptr(f.EndTime),
		TravelTimeMinutes:   &travel,
		DriverID:            ptr(f.DriverID),
		PumpTypeID:          ptr(f.PumpTypeID),
		ClientID:            ptr(f.ClientID),
		PriceListID:         ptr(f.PriceListID),
		Status:              &status,
		AddressStreet:       ptr(f.AddressStreet),
		AddressCity:         ptr(f.AddressCity),
		AddressPostalCode:   ptr(f.AddressPostalCode),
		VolumeM3:            f.VolumeM3,
		PipeLengthM:         f.PipeLengthM,
		Notes:               ptr(f.Notes),
		DriverNotes:         ptr(f.DriverNotes),
		ProprietaryConcrete: &concrete,
	}
}

// validateForm checks field tags, then that the job ends after it starts.
func validateForm(v *validation.Validator, f JobForm) error {
	if err := v.Struct(f); err != nil {
		return errors.WithHint(err, "Please check the "+fieldOf(err)+" field")
	}
	if f.EndTime != "" && calendar.TimeToMinutes(f.EndTime) <= calendar.TimeToMinutes(f.StartTime) {
		return errors.WithHint(&domain.ValidationError{Field: "end_time", Message: "must be after start_time"},
			"End time must be after start time")
	}
	return nil
}

func fieldOf(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return strings.ReplaceAll(verr.Field, "_", " ")
	}
	return "form"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func ptr(s string) *string { return &s }
