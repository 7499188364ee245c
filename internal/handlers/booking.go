package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/slotline/slotline/internal/availability"
	"github.com/slotline/slotline/internal/booking"
	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/notify"
	"github.com/slotline/slotline/internal/outbox"
	"github.com/slotline/slotline/internal/storage"
	"github.com/slotline/slotline/internal/timewin"
)

// SlotEngine lists the candidate grid for a business day.
type SlotEngine interface {
	Slots(ctx context.Context, businessID, date string, durationMinutes int, staffID string) ([]availability.Slot, error)
}

// Guard runs the conflict-checked booking attempt.
type Guard interface {
	Attempt(ctx context.Context, req booking.Request) (booking.Result, error)
}

// BookingStore covers the reads and owner actions the booking endpoints need
// beyond the guard.
type BookingStore interface {
	ServiceDuration(ctx context.Context, businessID, serviceID string) (int, error)
	ListAppointments(ctx context.Context, businessID, date string, limit int) ([]model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, businessID, appointmentID, newStatus string, makeEvents func(*model.Appointment) []outbox.Event) (*model.Appointment, error)
	Business(ctx context.Context, businessID string) (model.Business, error)
}

type BookingHandler struct {
	engine SlotEngine
	guard  Guard
	store  BookingStore
	logger *slog.Logger
}

func NewBookingHandler(engine SlotEngine, guard Guard, store BookingStore, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, guard: guard, store: store, logger: logger}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	ServiceID     string `json:"service_id,omitempty"`
	StaffID       string `json:"staff_id,omitempty"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentItem(a *model.Appointment) appointmentItem {
	endMin := a.StartMinute + a.DurationMinutes
	item := appointmentItem{
		AppointmentID: a.ID,
		ServiceID:     a.ServiceID,
		StaffID:       a.StaffID,
		ClientName:    a.ClientName,
		ClientPhone:   a.ClientPhone,
		Date:          a.Date,
		StartTime:     timewin.FormatClock(a.StartMinute),
		EndTime:       timewin.FormatClock(endMin),
		Status:        a.Status,
		CreatedAt:     a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return item
}

// Slots serves the public availability query. The response always carries
// every candidate, disabled ones included, so the page can grey them out.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	date := strings.TrimSpace(q.Get("date"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	staffID := strings.TrimSpace(q.Get("staff_id"))
	if businessID == "" || date == "" {
		http.Error(w, "business_id and date are required", http.StatusBadRequest)
		return
	}

	duration := availability.SlotStepMinutes
	if serviceID != "" {
		d, err := h.store.ServiceDuration(r.Context(), businessID, serviceID)
		if err != nil {
			http.Error(w, "failed to resolve service", http.StatusInternalServerError)
			return
		}
		if d > 0 {
			duration = d
		}
	} else if v := strings.TrimSpace(q.Get("duration_minutes")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 8*60 {
			duration = n
		}
	}

	slots, err := h.engine.Slots(r.Context(), businessID, date, duration, staffID)
	if err != nil {
		h.logger.Error("slot query failed", "err", err, "business_id", businessID)
		http.Error(w, "failed to load slots", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: timewin.FormatClock(s.StartMinute),
			EndTime:   timewin.FormatClock(s.EndMinute),
			Available: s.Available,
			Reason:    s.Reason,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type createBookingRequest struct {
	BusinessID  string `json:"business_id"`
	ServiceID   string `json:"service_id"`
	StaffID     string `json:"staff_id"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type conflictResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	StaffID string `json:"staff_id,omitempty"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// Create serves the public booking command. Conflicts and outside-hours
// rejections are expected outcomes with structured bodies; only storage
// failures are 5xx.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	res, err := h.guard.Attempt(r.Context(), booking.Request{
		BusinessID:  req.BusinessID,
		ServiceID:   strings.TrimSpace(req.ServiceID),
		StaffID:     strings.TrimSpace(req.StaffID),
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
	})
	if err != nil {
		if errors.Is(err, booking.ErrInvalidRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("booking attempt failed", "err", err, "business_id", req.BusinessID)
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	if c := res.Conflict; c != nil {
		status := http.StatusConflict
		msg := "time slot already booked"
		if c.Reason == availability.ReasonOutsideHours {
			status = http.StatusUnprocessableEntity
			msg = "requested time is outside business hours"
		}
		writeJSON(w, status, conflictResponse{
			Error:   msg,
			Reason:  c.Reason,
			StaffID: c.StaffID,
			Date:    c.Date,
			Time:    c.Time,
		})
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(res.Appointment))
}

// List serves the owner's appointment overview.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.store.ListAppointments(r.Context(), businessID, strings.TrimSpace(q.Get("date")), limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for i := range appts {
		items = append(items, toAppointmentItem(&appts[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

type statusChangeRequest struct {
	BusinessID    string `json:"business_id"`
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// UpdateStatus applies an owner transition. Moving to cancelled frees the
// slot and emits a cancellation notification event.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Status = strings.TrimSpace(req.Status)
	if req.BusinessID == "" || req.AppointmentID == "" {
		http.Error(w, "business_id and appointment_id required", http.StatusBadRequest)
		return
	}
	if !model.ValidStatus(req.Status) || req.Status == model.StatusPending {
		http.Error(w, "status must be confirmed, completed or cancelled", http.StatusBadRequest)
		return
	}

	var makeEvents func(*model.Appointment) []outbox.Event
	if req.Status == model.StatusCancelled {
		businessName := ""
		if b, err := h.store.Business(r.Context(), req.BusinessID); err == nil {
			businessName = b.Name
		}
		makeEvents = func(appt *model.Appointment) []outbox.Event {
			evt, err := notify.BookingCancelled(appt, businessName)
			if err != nil {
				h.logger.Error("failed to build cancellation event", "err", err)
				return nil
			}
			return []outbox.Event{evt}
		}
	}

	appt, err := h.store.UpdateAppointmentStatus(r.Context(), req.BusinessID, req.AppointmentID, req.Status, makeEvents)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("status update failed", "err", err, "appointment_id", req.AppointmentID)
			http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}
