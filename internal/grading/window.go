package grading

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/sma-scoring-engine/internal/models"
)

// DenyReason explains why a write was refused.
type DenyReason string

const (
	DenyExamLocked    DenyReason = "EXAM_LOCKED"
	DenyWindowExpired DenyReason = "WINDOW_EXPIRED"
)

// WindowPolicy is the resolved per-school write window.
type WindowPolicy struct {
	LockAfterMinutes *int
	Location         *time.Location
	BypassRoles      []models.UserRole
}

// WriteContext describes the write being attempted.
// PeriodStart is "HH:MM" and empty when no period is targeted.
// Only the calendar day of TargetDate is used; zero means today.
type WriteContext struct {
	Principal   models.Principal
	Locked      bool
	PeriodStart string
	TargetDate  time.Time
}

// Decision is the outcome of a window check.
type Decision struct {
	Allowed        bool       `json:"allowed"`
	Reason         DenyReason `json:"reason,omitempty"`
	MinutesElapsed int        `json:"minutes_elapsed,omitempty"`
	LimitMinutes   int        `json:"limit_minutes,omitempty"`
}

var allowed = Decision{Allowed: true}

// CheckWindow decides whether a grading or attendance write may proceed at now.
func CheckWindow(policy WindowPolicy, wc WriteContext, now time.Time) (Decision, error) {
	if wc.Principal.HasRole(policy.BypassRoles...) {
		return allowed, nil
	}
	if wc.Locked {
		return Decision{Reason: DenyExamLocked}, nil
	}
	if policy.LockAfterMinutes == nil || wc.PeriodStart == "" {
		return allowed, nil
	}

	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if !wc.TargetDate.IsZero() && !sameDay(wc.TargetDate, local) {
		return allowed, nil
	}

	start, err := periodStartOn(local, wc.PeriodStart)
	if err != nil {
		return Decision{}, err
	}

	elapsed := int(math.Floor(local.Sub(start).Minutes()))
	limit := *policy.LockAfterMinutes
	if elapsed > limit {
		return Decision{Reason: DenyWindowExpired, MinutesElapsed: elapsed, LimitMinutes: limit}, nil
	}
	return allowed, nil
}

func sameDay(date, local time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := local.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func periodStartOn(local time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		var longErr error
		if clock, longErr = time.Parse("15:04:05", hhmm); longErr != nil {
			return time.Time{}, fmt.Errorf("parse period start %q: %w", hhmm, err)
		}
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, local.Location()), nil
}
