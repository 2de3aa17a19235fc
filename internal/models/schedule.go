package models

// Period is a timetable slot. StartTime is wall-clock "HH:MM" in the school's timezone.
type Period struct {
	ID        string `db:"id" json:"id"`
	SchoolID  string `db:"school_id" json:"school_id"`
	Name      string `db:"name" json:"name"`
	StartTime string `db:"start_time" json:"start_time"`
}
