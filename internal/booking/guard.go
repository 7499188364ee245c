// Package booking holds the conflict guard that re-validates a chosen slot
// immediately before persisting the appointment. The availability list shown
// to the client may be minutes stale, so the check runs again at write time.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/slotline/slotline/internal/availability"
	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/notify"
	"github.com/slotline/slotline/internal/outbox"
	"github.com/slotline/slotline/internal/timewin"
)

var (
	// ErrInvalidRequest marks caller-input problems (missing fields, bad
	// date or time), distinct from conflicts and storage failures.
	ErrInvalidRequest = errors.New("invalid booking request")

	// ErrSlotTaken is returned by Store.CreateAppointment when the insert
	// loses a race on the slot uniqueness constraint. Guard callers never
	// see it; it is mapped to a Conflict result.
	ErrSlotTaken = errors.New("slot already taken")
)

// Store is the write-side port the guard drives.
type Store interface {
	WeeklyRules(ctx context.Context, businessID string, weekday int) ([]model.WeeklyRule, error)
	// ServiceDuration returns 0 with no error when the service is unknown.
	ServiceDuration(ctx context.Context, businessID, serviceID string) (int, error)
	// ActiveCountAt counts non-cancelled appointments at the exact
	// (business, staff, date, start) tuple.
	ActiveCountAt(ctx context.Context, businessID, staffID, date string, startMinute int) (int, error)
	// CreateAppointment persists the appointment and any events in one
	// transaction, returning ErrSlotTaken on a slot-uniqueness violation.
	CreateAppointment(ctx context.Context, appt *model.Appointment, events ...outbox.Event) error
	Business(ctx context.Context, businessID string) (model.Business, error)
}

type Request struct {
	BusinessID  string
	ServiceID   string // optional
	StaffID     string // optional; empty = no preference
	ClientName  string
	ClientPhone string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, expected on the slot grid
}

// Conflict is the expected, user-recoverable outcome: pick another slot.
type Conflict struct {
	Reason  string
	StaffID string
	Date    string
	Time    string
}

// Result is exactly one of Appointment (created) or Conflict.
type Result struct {
	Appointment *model.Appointment
	Conflict    *Conflict
}

type Guard struct {
	store  Store
	logger *slog.Logger
}

func NewGuard(store Store, logger *slog.Logger) *Guard {
	return &Guard{store: store, logger: logger}
}

// Attempt runs the check-then-insert sequence.
//
// The pre-insert check matches on the exact start time only, not a full
// overlap scan: the UI offers pre-quantized slots, so two clients racing for
// the same displayed slot is the case worth catching cheaply. A concurrent
// appointment at a different start whose duration overlaps the requested
// slot is a known gap; the slot-uniqueness constraint backing
// CreateAppointment closes the identical-slot race but not the offset one.
func (g *Guard) Attempt(ctx context.Context, req Request) (Result, error) {
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientPhone = strings.TrimSpace(req.ClientPhone)
	if req.BusinessID == "" || req.ClientName == "" || req.ClientPhone == "" {
		return Result{}, fmt.Errorf("%w: business_id, client_name and client_phone are required", ErrInvalidRequest)
	}
	weekday, err := timewin.Weekday(req.Date)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	startMin, err := timewin.ParseClock(req.Time)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	duration := availability.SlotStepMinutes
	if req.ServiceID != "" {
		d, err := g.store.ServiceDuration(ctx, req.BusinessID, req.ServiceID)
		if err != nil {
			return Result{}, fmt.Errorf("resolve service duration: %w", err)
		}
		if d > 0 {
			duration = d
		}
	}

	rules, err := g.store.WeeklyRules(ctx, req.BusinessID, weekday)
	if err != nil {
		return Result{}, fmt.Errorf("load weekly rules: %w", err)
	}
	if !onGrid(rules, startMin, duration) {
		return Result{Conflict: &Conflict{
			Reason:  availability.ReasonOutsideHours,
			StaffID: req.StaffID,
			Date:    req.Date,
			Time:    req.Time,
		}}, nil
	}

	if req.StaffID != "" {
		n, err := g.store.ActiveCountAt(ctx, req.BusinessID, req.StaffID, req.Date, startMin)
		if err != nil {
			return Result{}, fmt.Errorf("conflict check: %w", err)
		}
		if n > 0 {
			return Result{Conflict: &Conflict{
				Reason:  availability.ReasonConflict,
				StaffID: req.StaffID,
				Date:    req.Date,
				Time:    req.Time,
			}}, nil
		}
	}

	appt := &model.Appointment{
		ID:              uuid.NewString(),
		BusinessID:      req.BusinessID,
		ServiceID:       req.ServiceID,
		StaffID:         req.StaffID,
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Date:            req.Date,
		StartMinute:     startMin,
		DurationMinutes: duration,
		Status:          model.StatusPending,
	}

	businessName := ""
	if b, err := g.store.Business(ctx, req.BusinessID); err == nil {
		businessName = b.Name
	} else {
		g.logger.Warn("business lookup failed; notification carries no business name", "err", err, "business_id", req.BusinessID)
	}

	var events []outbox.Event
	if evt, err := notify.BookingCreated(appt, businessName); err == nil {
		events = append(events, evt)
	} else {
		// Notification is fire-and-forget; never block the booking on it.
		g.logger.Error("failed to build booking notification event", "err", err)
	}

	if err := g.store.CreateAppointment(ctx, appt, events...); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return Result{Conflict: &Conflict{
				Reason:  availability.ReasonConflict,
				StaffID: req.StaffID,
				Date:    req.Date,
				Time:    req.Time,
			}}, nil
		}
		return Result{}, fmt.Errorf("create appointment: %w", err)
	}
	return Result{Appointment: appt}, nil
}

// onGrid reports whether [startMin, startMin+duration) sits on the 30-minute
// grid of some weekly rule block and finishes before the block closes.
func onGrid(rules []model.WeeklyRule, startMin, duration int) bool {
	for _, r := range rules {
		block := timewin.Span{Start: r.StartMinute, End: r.EndMinute}
		if !block.Valid() {
			continue
		}
		if startMin < block.Start || startMin+duration > block.End {
			continue
		}
		if (startMin-block.Start)%availability.SlotStepMinutes != 0 {
			continue
		}
		return true
	}
	return false
}
