package models

import "time"

// AvailabilityWindow is one recurring weekly interval during which a doctor
// accepts bookings. Times are wall-clock "HH:MM" strings with minute
// precision; day_of_week is 0=Sunday..6=Saturday. Windows for the same
// doctor and day may overlap; the slot generator tolerates that.
type AvailabilityWindow struct {
	ID        string    `db:"id" json:"id"`
	DoctorID  string    `db:"doctor_id" json:"doctor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClockMinutes converts an "HH:MM" wall-clock string into minutes since
// midnight. Returns false when the string is not a valid clock time.
func ClockMinutes(clock string) (int, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
