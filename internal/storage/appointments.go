package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/slotline/slotline/internal/booking"
	"github.com/slotline/slotline/internal/model"
	"github.com/slotline/slotline/internal/outbox"
)

const apptColumns = `
	a.id::text,
	a.business_id::text,
	COALESCE(a.service_id::text, ''),
	COALESCE(a.staff_id, ''),
	a.client_name,
	a.client_phone,
	a.date::text,
	a.start_minute,
	COALESCE(s.duration_minutes, 0),
	a.status,
	a.cancelled_at,
	a.created_at`

const apptJoin = `
	FROM appointments a
	LEFT JOIN services s
		ON s.id = a.service_id AND s.business_id = a.business_id`

// ActiveAppointments returns non-cancelled appointments for a business day.
// An empty staffID applies no staff predicate at all, so every active
// appointment on the date is returned. Durations come from the joined
// service row and are zero when the service no longer exists.
func (r *Repository) ActiveAppointments(ctx context.Context, businessID, date, staffID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+apptJoin+`
		WHERE a.business_id = $1
			AND a.date = $2::date
			AND a.status <> 'cancelled'
			AND ($3 = '' OR a.staff_id = $3)
		ORDER BY a.start_minute ASC
	`, businessID, date, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ActiveCountAt counts active appointments at the exact slot start for one
// staff member. This deliberately matches on start time only; see the
// booking guard for why.
func (r *Repository) ActiveCountAt(ctx context.Context, businessID, staffID, date string, startMinute int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE business_id = $1
			AND staff_id = $2
			AND date = $3::date
			AND start_minute = $4
			AND status <> 'cancelled'
	`, businessID, staffID, date, startMinute).Scan(&n)
	return n, err
}

// CreateAppointment inserts the appointment and its outbox events in one
// transaction. A violation of the slot uniqueness index surfaces as
// booking.ErrSlotTaken.
func (r *Repository) CreateAppointment(ctx context.Context, appt *model.Appointment, events ...outbox.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, business_id, service_id, staff_id, client_name, client_phone, date, start_minute, status)
		VALUES ($1, $2, NULLIF($3, '')::uuid, NULLIF($4, ''), $5, $6, $7::date, $8, $9)
		RETURNING created_at
	`, appt.ID, appt.BusinessID, appt.ServiceID, appt.StaffID, appt.ClientName, appt.ClientPhone,
		appt.Date, appt.StartMinute, appt.Status).Scan(&appt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("appointment slot %s %s: %w", appt.Date, appt.BusinessID, booking.ErrSlotTaken)
		}
		return err
	}

	for _, evt := range events {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListAppointments returns a business's appointments, optionally restricted
// to one date, newest day first.
func (r *Repository) ListAppointments(ctx context.Context, businessID, date string, limit int) ([]model.Appointment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+apptJoin+`
		WHERE a.business_id = $1
			AND ($2 = '' OR a.date = $2::date)
		ORDER BY a.date DESC, a.start_minute ASC
		LIMIT $3
	`, businessID, date, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// UpdateAppointmentStatus applies an owner-driven status transition under a
// row lock. Cancelling an already-cancelled appointment is a no-op.
// makeEvents, when non-nil, builds outbox events from the updated
// appointment; they commit atomically with the change.
func (r *Repository) UpdateAppointmentStatus(ctx context.Context, businessID, appointmentID, newStatus string, makeEvents func(*model.Appointment) []outbox.Event) (*model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		SELECT `+apptColumns+apptJoin+`
		WHERE a.id = $1 AND a.business_id = $2
		FOR UPDATE OF a
	`, appointmentID, businessID)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if appt.Status == newStatus {
		return &appt, nil
	}
	if !model.CanTransition(appt.Status, newStatus) {
		return nil, fmt.Errorf("%s -> %s: %w", appt.Status, newStatus, ErrInvalidTransition)
	}

	var cancelledAt *time.Time
	if newStatus == model.StatusCancelled {
		now := time.Now().UTC()
		cancelledAt = &now
	}
	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3, cancelled_at = $4
		WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID, newStatus, cancelledAt); err != nil {
		return nil, err
	}
	appt.Status = newStatus
	appt.CancelledAt = cancelledAt

	if makeEvents != nil {
		for _, evt := range makeEvents(&appt) {
			if err := r.outbox.Insert(ctx, tx, evt); err != nil {
				return nil, err
			}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &appt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var a model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.ServiceID,
		&a.StaffID,
		&a.ClientName,
		&a.ClientPhone,
		&a.Date,
		&a.StartMinute,
		&a.DurationMinutes,
		&a.Status,
		&cancelledAt,
		&a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.CancelledAt = cancelledAt
	return a, nil
}

func scanAppointments(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}
