package models

import "time"

// GradingWindowPolicy is the per-school rule for how long after a period starts
// its grades stay writable. A nil LockAfterMinutes disables the window.
type GradingWindowPolicy struct {
	SchoolID         string    `db:"school_id" json:"school_id"`
	LockAfterMinutes *int      `db:"lock_after_minutes" json:"lock_after_minutes,omitempty"`
	Timezone         string    `db:"timezone" json:"timezone"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
