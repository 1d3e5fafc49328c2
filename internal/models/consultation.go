package models

import "time"

// ConsultationStatus is the lifecycle state of a consultation.
type ConsultationStatus string

const (
	StatusScheduled  ConsultationStatus = "SCHEDULED"
	StatusConfirmed  ConsultationStatus = "CONFIRMED"
	StatusInProgress ConsultationStatus = "IN_PROGRESS"
	StatusCompleted  ConsultationStatus = "COMPLETED"
	StatusCancelled  ConsultationStatus = "CANCELLED"
	StatusNoShow     ConsultationStatus = "NO_SHOW"
)

// Occupies reports whether a consultation in this status blocks its time
// window. Cancelled, completed and no-show bookings free the slot.
func (s ConsultationStatus) Occupies() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

// ConsultationType is the delivery channel for a consultation.
type ConsultationType string

const (
	TypeVideo    ConsultationType = "VIDEO"
	TypeAudio    ConsultationType = "AUDIO"
	TypeChat     ConsultationType = "CHAT"
	TypeInPerson ConsultationType = "IN_PERSON"
)

// DefaultDurationMinutes applies when a booking does not specify one.
const DefaultDurationMinutes = 30

// Consultation is a scheduled appointment between a patient and a doctor.
// Rows are never deleted; the lifecycle is soft, via status. The fee is a
// snapshot of the doctor's rate at booking time and never changes afterwards.
type Consultation struct {
	ID              string             `db:"id" json:"id"`
	DoctorID        string             `db:"doctor_id" json:"doctor_id"`
	PatientID       string             `db:"patient_id" json:"patient_id"`
	ScheduledAt     time.Time          `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int                `db:"duration_minutes" json:"duration_minutes"`
	Type            ConsultationType   `db:"type" json:"type"`
	Status          ConsultationStatus `db:"status" json:"status"`
	Fee             float64            `db:"fee" json:"fee"`
	Paid            bool               `db:"paid" json:"paid"`
	Notes           *string            `db:"notes" json:"notes,omitempty"`
	Prescription    *string            `db:"prescription" json:"prescription,omitempty"`
	MeetingLink     *string            `db:"meeting_link" json:"meeting_link,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// Interval returns the half-open occupancy interval [start, end).
func (c *Consultation) Interval() (time.Time, time.Time) {
	duration := c.DurationMinutes
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	return c.ScheduledAt, c.ScheduledAt.Add(time.Duration(duration) * time.Minute)
}

// ConsultationFilter captures filtering criteria for listing consultations.
type ConsultationFilter struct {
	DoctorID  string
	PatientID string
	Status    *ConsultationStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
