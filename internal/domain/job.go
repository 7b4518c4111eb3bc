package domain

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a pumping job.
type JobStatus string

const (
	JobStatusToPlan     JobStatus = "to_plan"
	JobStatusPlanning   JobStatus = "planning"
	JobStatusPlanned    JobStatus = "planned"
	JobStatusReceived   JobStatus = "received"
	JobStatusEnRoute    JobStatus = "en_route"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusInvoiced   JobStatus = "invoiced"
	JobStatusCancelled  JobStatus = "cancelled"
)

var jobStatuses = map[JobStatus]struct {
	label string
	color string
}{
	JobStatusToPlan:     {"To plan", "gray"},
	JobStatusPlanning:   {"Planning", "gray"},
	JobStatusPlanned:    {"Planned", "sky"},
	JobStatusReceived:   {"Received", "blue"},
	JobStatusEnRoute:    {"En route", "amber"},
	JobStatusInProgress: {"In progress", "purple"},
	JobStatusCompleted:  {"Completed", "emerald"},
	JobStatusInvoiced:   {"Invoiced", "green"},
	JobStatusCancelled:  {"Cancelled", "red"},
}

// Valid reports whether s belongs to the closed status set.
func (s JobStatus) Valid() bool {
	_, ok := jobStatuses[s]
	return ok
}

// Label returns the human-readable status name.
func (s JobStatus) Label() string {
	if st, ok := jobStatuses[s]; ok {
		return st.label
	}
	return string(s)
}

// Color returns the colour token a card of this status is painted with.
func (s JobStatus) Color() string {
	if st, ok := jobStatuses[s]; ok {
		return st.color
	}
	return "gray"
}

// ParseJobStatus converts a raw value into a JobStatus.
func ParseJobStatus(raw string) (JobStatus, bool) {
	s := JobStatus(raw)
	return s, s.Valid()
}

// Job is a scheduled pumping job as persisted by the job store. Times are
// "HH:MM" clock strings within JobDate.
type Job struct {
	ID                  string    `json:"id" db:"id"`
	OrganizationID      string    `json:"organization_id" db:"organization_id"`
	JobDate             string    `json:"job_date" db:"job_date"`
	StartTime           string    `json:"start_time" db:"start_time"`
	EndTime             *string   `json:"end_time,omitempty" db:"end_time"`
	TravelTimeMinutes   *int      `json:"travel_time_minutes,omitempty" db:"travel_time_minutes"`
	DriverID            *string   `json:"driver_id,omitempty" db:"driver_id"`
	PumpTypeID          *string   `json:"pump_type_id,omitempty" db:"pump_type_id"`
	ClientID            *string   `json:"client_id,omitempty" db:"client_id"`
	PriceListID         *string   `json:"price_list_id,omitempty" db:"price_list_id"`
	Status              JobStatus `json:"status" db:"status"`
	AddressStreet       *string   `json:"address_street,omitempty" db:"address_street"`
	AddressCity         *string   `json:"address_city,omitempty" db:"address_city"`
	AddressPostalCode   *string   `json:"address_postal_code,omitempty" db:"address_postal_code"`
	VolumeM3            *float64  `json:"volume_m3,omitempty" db:"volume_m3"`
	PipeLengthM         *float64  `json:"pipe_length_m,omitempty" db:"pipe_length_m"`
	Notes               *string   `json:"notes,omitempty" db:"notes"`
	DriverNotes         *string   `json:"driver_notes,omitempty" db:"driver_notes"`
	ProprietaryConcrete bool      `json:"proprietary_concrete" db:"proprietary_concrete"`

	// Display fields joined from related tables.
	ClientName      *string `json:"client_name,omitempty" db:"client_name"`
	ClientPhone     *string `json:"client_phone,omitempty" db:"client_phone"`
	DriverFirstName *string `json:"driver_first_name,omitempty" db:"driver_first_name"`
	DriverLastName  *string `json:"driver_last_name,omitempty" db:"driver_last_name"`
	PumpTypeName    *string `json:"pump_type_name,omitempty" db:"pump_type_name"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Travel returns the travel time in minutes, zero when unset.
func (j Job) Travel() int {
	if j.TravelTimeMinutes == nil || *j.TravelTimeMinutes < 0 {
		return 0
	}
	return *j.TravelTimeMinutes
}

// AssignedTo reports whether the job belongs to driverID. An empty driverID
// matches unassigned jobs.
func (j Job) AssignedTo(driverID string) bool {
	if j.DriverID == nil || *j.DriverID == "" {
		return driverID == ""
	}
	return *j.DriverID == driverID
}

// JobDraft holds the fields of a job about to be created.
type JobDraft struct {
	JobDate             string    `json:"job_date" validate:"required,datetime=2006-01-02"`
	StartTime           string    `json:"start_time" validate:"required,clock"`
	EndTime             *string   `json:"end_time,omitempty" validate:"omitempty,clock"`
	TravelTimeMinutes   *int      `json:"travel_time_minutes,omitempty" validate:"omitempty,min=0,max=720"`
	DriverID            *string   `json:"driver_id,omitempty"`
	PumpTypeID          *string   `json:"pump_type_id,omitempty"`
	ClientID            *string   `json:"client_id,omitempty"`
	PriceListID         *string   `json:"price_list_id,omitempty"`
	Status              JobStatus `json:"status" validate:"omitempty,job_status"`
	AddressStreet       *string   `json:"address_street,omitempty" validate:"omitempty,max=200"`
	AddressCity         *string   `json:"address_city,omitempty" validate:"omitempty,max=100"`
	AddressPostalCode   *string   `json:"address_postal_code,omitempty" validate:"omitempty,max=20"`
	VolumeM3            *float64  `json:"volume_m3,omitempty" validate:"omitempty,min=0"`
	PipeLengthM         *float64  `json:"pipe_length_m,omitempty" validate:"omitempty,min=0"`
	Notes               *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DriverNotes         *string   `json:"driver_notes,omitempty" validate:"omitempty,max=2000"`
	ProprietaryConcrete bool      `json:"proprietary_concrete"`
}

// legacyJobFields lists the aliased names older clients still send.
type legacyJobFields struct {
	PumpistID      *string   `json:"pumpist_id"`
	JobStatus      JobStatus `json:"job_status"`
	VolumeExpected *float64  `json:"volume_expected"`
	PipeExpected   *float64  `json:"pipe_expected"`
	PipeLength     *float64  `json:"pipe_length"`
}

// UnmarshalJSON decodes a draft, folding legacy field aliases into the
// canonical fields. Canonical names win when both are present.
func (d *JobDraft) UnmarshalJSON(data []byte) error {
	type plain JobDraft
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var legacy legacyJobFields
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if p.DriverID == nil {
		p.DriverID = legacy.PumpistID
	}
	if p.Status == "" {
		p.Status = legacy.JobStatus
	}
	if p.VolumeM3 == nil {
		p.VolumeM3 = legacy.VolumeExpected
	}
	if p.PipeLengthM == nil {
		p.PipeLengthM = legacy.PipeExpected
	}
	if p.PipeLengthM == nil {
		p.PipeLengthM = legacy.PipeLength
	}
	*d = JobDraft(p)
	return nil
}

// JobPatch carries a partial update; nil fields are left untouched.
type JobPatch struct {
	StartTime           *string    `json:"start_time,omitempty" validate:"omitempty,clock"`
	EndTime             *string    `json:"end_time,omitempty" validate:"omitempty,clock"`
	TravelTimeMinutes   *int       `json:"travel_time_minutes,omitempty" validate:"omitempty,min=0,max=720"`
	DriverID            *string    `json:"driver_id,omitempty"`
	PumpTypeID          *string    `json:"pump_type_id,omitempty"`
	ClientID            *string    `json:"client_id,omitempty"`
	PriceListID         *string    `json:"price_list_id,omitempty"`
	Status              *JobStatus `json:"status,omitempty" validate:"omitempty,job_status"`
	AddressStreet       *string    `json:"address_street,omitempty" validate:"omitempty,max=200"`
	AddressCity         *string    `json:"address_city,omitempty" validate:"omitempty,max=100"`
	AddressPostalCode   *string    `json:"address_postal_code,omitempty" validate:"omitempty,max=20"`
	VolumeM3            *float64   `json:"volume_m3,omitempty" validate:"omitempty,min=0"`
	PipeLengthM         *float64   `json:"pipe_length_m,omitempty" validate:"omitempty,min=0"`
	Notes               *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	DriverNotes         *string    `json:"driver_notes,omitempty" validate:"omitempty,max=2000"`
	ProprietaryConcrete *bool      `json:"proprietary_concrete,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p JobPatch) Empty() bool {
	return p == JobPatch{}
}

// Driver is an active pump operator a job can be assigned to.
type Driver struct {
	ID        string  `json:"id" db:"id"`
	FirstName string  `json:"first_name" db:"first_name"`
	LastName  string  `json:"last_name" db:"last_name"`
	Phone     *string `json:"phone,omitempty" db:"phone"`
	IsActive  bool    `json:"is_active" db:"is_active"`
}

// DisplayName returns "First Last" without dangling whitespace.
func (d Driver) DisplayName() string {
	switch {
	case d.LastName == "":
		return d.FirstName
	case d.FirstName == "":
		return d.LastName
	}
	return d.FirstName + " " + d.LastName
}
