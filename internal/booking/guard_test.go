package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/slotline/slotline/internal/availability"
	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/notify"
	"github.com/slotline/slotline/internal/outbox"
)

// fakeStore serializes writes with a mutex, standing in for the partial
// unique index that backs CreateAppointment in Postgres.
type fakeStore struct {
	mu        sync.Mutex
	rules     []model.WeeklyRule
	durations map[string]int
	appts     []*model.Appointment
	events    []outbox.Event

	rulesErr  error
	createErr error
	countErr  error
}

func (f *fakeStore) WeeklyRules(_ context.Context, _ string, weekday int) ([]model.WeeklyRule, error) {
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	var out []model.WeeklyRule
	for _, r := range f.rules {
		if r.Weekday == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ServiceDuration(_ context.Context, _, serviceID string) (int, error) {
	return f.durations[serviceID], nil
}

func (f *fakeStore) ActiveCountAt(_ context.Context, businessID, staffID, date string, startMinute int) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.appts {
		if a.BusinessID == businessID && a.StaffID == staffID && a.Date == date && a.StartMinute == startMinute && a.Active() {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateAppointment(_ context.Context, appt *model.Appointment, events ...outbox.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if appt.StaffID != "" {
		for _, a := range f.appts {
			if a.BusinessID == appt.BusinessID && a.StaffID == appt.StaffID && a.Date == appt.Date && a.StartMinute == appt.StartMinute && a.Active() {
				return fmt.Errorf("appointments_slot_key: %w", ErrSlotTaken)
			}
		}
	}
	f.appts = append(f.appts, appt)
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeStore) Business(_ context.Context, businessID string) (model.Business, error) {
	return model.Business{ID: businessID, Name: "Studio One", Timezone: "Europe/Berlin"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func monFri9to5() []model.WeeklyRule {
	var rules []model.WeeklyRule
	for wd := 1; wd <= 5; wd++ {
		rules = append(rules, model.WeeklyRule{BusinessID: "biz-1", Weekday: wd, StartMinute: 540, EndMinute: 1020})
	}
	return rules
}

// 2026-03-02 is a Monday.
func validRequest() Request {
	return Request{
		BusinessID:  "biz-1",
		ServiceID:   "svc-cut",
		StaffID:     "staff-a",
		ClientName:  "Dana Vogel",
		ClientPhone: "+4915112345678",
		Date:        "2026-03-02",
		Time:        "10:00",
	}
}

func TestAttempt_CreatesPendingAppointment(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60}}
	guard := NewGuard(store, testLogger())

	res, err := guard.Attempt(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Conflict != nil {
		t.Fatalf("unexpected conflict: %+v", res.Conflict)
	}
	appt := res.Appointment
	if appt == nil {
		t.Fatal("expected created appointment")
	}
	if appt.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", appt.Status)
	}
	if appt.StartMinute != 600 || appt.DurationMinutes != 60 {
		t.Errorf("slot = [%d, +%d), want [600, +60)", appt.StartMinute, appt.DurationMinutes)
	}
	if appt.ID == "" {
		t.Error("expected generated appointment id")
	}
	if len(store.events) != 1 || store.events[0].EventType != notify.EventBookingCreated {
		t.Errorf("expected one booking-created event, got %+v", store.events)
	}
}

func TestAttempt_ExactSlotConflict(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60}}
	guard := NewGuard(store, testLogger())
	ctx := context.Background()

	if _, err := guard.Attempt(ctx, validRequest()); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	res, err := guard.Attempt(ctx, validRequest())
	if err != nil {
		t.Fatalf("second booking: %v", err)
	}
	if res.Appointment != nil {
		t.Fatal("second booking should not create an appointment")
	}
	c := res.Conflict
	if c == nil {
		t.Fatal("expected conflict result")
	}
	if c.Reason != availability.ReasonConflict {
		t.Errorf("reason = %q, want conflict", c.Reason)
	}
	if c.StaffID != "staff-a" || c.Time != "10:00" {
		t.Errorf("conflict should name the staff and time, got %+v", c)
	}
}

func TestAttempt_DifferentStaffDoesNotConflict(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60}}
	guard := NewGuard(store, testLogger())
	ctx := context.Background()

	if _, err := guard.Attempt(ctx, validRequest()); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	req := validRequest()
	req.StaffID = "staff-b"
	res, err := guard.Attempt(ctx, req)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Appointment == nil {
		t.Fatalf("staff-b should be bookable at the same time, got %+v", res.Conflict)
	}
}

func TestAttempt_NoStaffPreferenceSkipsExactCheck(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60}}
	guard := NewGuard(store, testLogger())
	ctx := context.Background()

	req := validRequest()
	req.StaffID = ""
	for i := 0; i < 2; i++ {
		res, err := guard.Attempt(ctx, req)
		if err != nil {
			t.Fatalf("booking %d: %v", i, err)
		}
		if res.Appointment == nil {
			t.Fatalf("booking %d: unassigned bookings have no staff contention, got %+v", i, res.Conflict)
		}
	}
}

func TestAttempt_OutsideBusinessHours(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60, "svc-long": 120}}
	guard := NewGuard(store, testLogger())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Request)
	}{
		{"before opening", func(r *Request) { r.Time = "08:00" }},
		{"off the 30-minute grid", func(r *Request) { r.Time = "10:15" }},
		{"would run past close", func(r *Request) { r.Time = "16:30" }},
		{"closed day", func(r *Request) { r.Date = "2026-03-01" }}, // Sunday
		{"long service near close", func(r *Request) { r.ServiceID = "svc-long"; r.Time = "16:00" }},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		res, err := guard.Attempt(ctx, req)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if res.Conflict == nil || res.Conflict.Reason != availability.ReasonOutsideHours {
			t.Errorf("%s: expected outside_business_hours, got %+v", tc.name, res)
		}
	}
	if len(store.appts) != 0 {
		t.Fatalf("no appointment should be written, got %d", len(store.appts))
	}
}

func TestAttempt_UnknownServiceDegradesToStepDuration(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{}}
	guard := NewGuard(store, testLogger())

	req := validRequest()
	req.ServiceID = "svc-deleted"
	res, err := guard.Attempt(context.Background(), req)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if res.Appointment == nil {
		t.Fatalf("expected booking to succeed with degraded duration, got %+v", res.Conflict)
	}
	if res.Appointment.DurationMinutes != availability.SlotStepMinutes {
		t.Fatalf("duration = %d, want %d", res.Appointment.DurationMinutes, availability.SlotStepMinutes)
	}
}

func TestAttempt_StorageFailureIsNotAConflict(t *testing.T) {
	boom := errors.New("connection reset")
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60}, createErr: boom}
	guard := NewGuard(store, testLogger())

	res, err := guard.Attempt(context.Background(), validRequest())
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage error, got res=%+v err=%v", res, err)
	}
	if res.Conflict != nil {
		t.Fatal("storage failure must not be reported as a conflict")
	}
}

func TestAttempt_InvalidInput(t *testing.T) {
	guard := NewGuard(&fakeStore{rules: monFri9to5()}, testLogger())
	ctx := context.Background()

	cases := []func(*Request){
		func(r *Request) { r.BusinessID = "" },
		func(r *Request) { r.ClientName = "  " },
		func(r *Request) { r.ClientPhone = "" },
		func(r *Request) { r.Date = "02.03.2026" },
		func(r *Request) { r.Time = "10" },
	}
	for i, mutate := range cases {
		req := validRequest()
		mutate(&req)
		if _, err := guard.Attempt(ctx, req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

// Two concurrent attempts for the same slot: exactly one creation, one
// conflict. The fake store serializes check-and-insert with a mutex the way
// the production store relies on the slot uniqueness index; without such a
// constraint both attempts could pass the read check.
func TestAttempt_RacingBookingsYieldOneWinner(t *testing.T) {
	store := &fakeStore{rules: monFri9to5(), durations: map[string]int{"svc-cut": 60}}
	guard := NewGuard(store, testLogger())
	ctx := context.Background()

	results := make([]Result, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = guard.Attempt(ctx, validRequest())
		}(i)
	}
	wg.Wait()

	created, conflicted := 0, 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("attempt %d: %v", i, errs[i])
		}
		if results[i].Appointment != nil {
			created++
		}
		if results[i].Conflict != nil {
			conflicted++
		}
	}
	if created != 1 || conflicted != 1 {
		t.Fatalf("created=%d conflicted=%d, want exactly one of each", created, conflicted)
	}
	if len(store.appts) != 1 {
		t.Fatalf("store holds %d appointments, want 1", len(store.appts))
	}
}
