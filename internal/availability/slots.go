// Package availability computes the bookable slot grid for a business day.
package availability

import (
	"context"
	"sort"

	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/timewin"
)

// SlotStepMinutes is the fixed slot quantization. Candidate starts always
// land on this boundary regardless of service duration; plan pricing and the
// booking UI assume it.
const SlotStepMinutes = 30

// Reasons a slot is not bookable.
const (
	ReasonConflict     = "conflict"
	ReasonOutsideHours = "outside_business_hours"
)

// Slot is one candidate start produced for a business day. Unavailable slots
// are emitted too, so callers can render them disabled.
type Slot struct {
	StartMinute int
	EndMinute   int
	Available   bool
	Reason      string // set only when Available is false
}

// Store is the read side the engine needs. Implementations filter
// cancelled appointments out and resolve each appointment's duration from
// its linked service (zero when the service is gone).
type Store interface {
	WeeklyRules(ctx context.Context, businessID string, weekday int) ([]model.WeeklyRule, error)
	ActiveAppointments(ctx context.Context, businessID, date, staffID string) ([]model.Appointment, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Slots returns the ordered candidate grid for a business/date. A malformed
// date, non-positive duration, or a day with no weekly rules yields an empty
// list, not an error; only storage failures propagate.
//
// An empty staffID means no staff-level filtering: every active appointment
// on the date counts as busy.
func (e *Engine) Slots(ctx context.Context, businessID, date string, durationMinutes int, staffID string) ([]Slot, error) {
	if businessID == "" || durationMinutes <= 0 {
		return nil, nil
	}
	weekday, err := timewin.Weekday(date)
	if err != nil {
		return nil, nil
	}

	rules, err := e.store.WeeklyRules(ctx, businessID, weekday)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		// No rules means the day is closed: no candidates at all.
		return nil, nil
	}

	appts, err := e.store.ActiveAppointments(ctx, businessID, date, staffID)
	if err != nil {
		return nil, err
	}
	return Grid(rules, appts, durationMinutes), nil
}

// Grid is the pure slot computation: fixed-step candidate starts within each
// rule block, flagged unavailable on half-open overlap with any active
// appointment. Overlapping rule blocks do not duplicate candidates, and the
// result is stably sorted by start.
func Grid(rules []model.WeeklyRule, appts []model.Appointment, durationMinutes int) []Slot {
	if durationMinutes <= 0 {
		return nil
	}

	busy := busySpans(appts, durationMinutes)

	seen := make(map[int]struct{})
	var starts []int
	for _, r := range rules {
		block := timewin.Span{Start: r.StartMinute, End: r.EndMinute}
		if !block.Valid() {
			continue
		}
		for t := block.Start; t+durationMinutes <= block.End; t += SlotStepMinutes {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			starts = append(starts, t)
		}
	}
	sort.Ints(starts)

	slots := make([]Slot, 0, len(starts))
	for _, t := range starts {
		candidate := timewin.Span{Start: t, End: t + durationMinutes}
		slot := Slot{StartMinute: candidate.Start, EndMinute: candidate.End, Available: true}
		for _, b := range busy {
			if candidate.Overlaps(b) {
				slot.Available = false
				slot.Reason = ReasonConflict
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// busySpans converts active appointments to occupied spans. An appointment
// whose duration is unknown (service deleted) occupies exactly the requested
// duration instead of failing the computation.
func busySpans(appts []model.Appointment, fallbackDuration int) []timewin.Span {
	spans := make([]timewin.Span, 0, len(appts))
	for _, a := range appts {
		if !a.Active() {
			continue
		}
		dur := a.DurationMinutes
		if dur <= 0 {
			dur = fallbackDuration
		}
		spans = append(spans, timewin.Span{Start: a.StartMinute, End: a.StartMinute + dur})
	}
	return spans
}
