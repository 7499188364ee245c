// Package notify builds the fire-and-forget notification events emitted
// after booking changes. Delivery (SMS/email dispatch) lives outside this
// service; failure to deliver never affects the booking record.
package notify

import (
	"encoding/json"

	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/outbox"
	"github.com/slotline/slotline/internal/timewin"
)

const (
	EventBookingCreated   = "booking.appointment.created.v1"
	EventBookingCancelled = "booking.appointment.cancelled.v1"
)

// BookingCreated builds the confirmation-dispatch event for a new booking.
func BookingCreated(appt *model.Appointment, businessName string) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"business_name":  businessName,
		"client_name":    appt.ClientName,
		"phone":          appt.ClientPhone,
		"date":           appt.Date,
		"time":           timewin.FormatClock(appt.StartMinute),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventBookingCreated,
		Payload:       payload,
	}, nil
}

// BookingCancelled builds the cancellation-dispatch event.
func BookingCancelled(appt *model.Appointment, businessName string) (outbox.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"business_name":  businessName,
		"client_name":    appt.ClientName,
		"phone":          appt.ClientPhone,
		"date":           appt.Date,
		"time":           timewin.FormatClock(appt.StartMinute),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventBookingCancelled,
		Payload:       payload,
	}, nil
}
