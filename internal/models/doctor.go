package models

import "time"

// Doctor is the directory record the scheduler reads when validating and
// pricing bookings. The platform's profile management owns the rest of it.
type Doctor struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	FullName        string    `db:"full_name" json:"full_name"`
	Specialty       string    `db:"specialty" json:"specialty"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	ConsultationFee float64   `db:"consultation_fee" json:"consultation_fee"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorFilter captures filtering criteria for listing doctors.
type DoctorFilter struct {
	Specialty string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
