package model

import "time"

// Appointment statuses. Conflict checks only consider active (non-cancelled)
// rows; enforcement happens in the booking guard, not as a storage constraint
// on the full overlap.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID          string
	BusinessID  string
	ServiceID   string // empty = no service recorded
	StaffID     string // empty = no staff preference
	ClientName  string
	ClientPhone string
	Date        string // business-local calendar date, YYYY-MM-DD
	StartMinute int    // minutes from midnight, business-local
	// DurationMinutes is resolved from the linked service at read time.
	// Zero means the service is gone or unknown; callers substitute their
	// own duration (degraded, never fatal).
	DurationMinutes int
	Status          string
	CancelledAt     *time.Time
	CreatedAt       time.Time
}

// Active reports whether the appointment still occupies its slot.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an owner-driven status change is allowed.
// Cancelled and completed are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled || to == StatusCompleted
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
