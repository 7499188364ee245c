package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotline/slotline/internal/model"
)

func (r *Repository) CreateService(ctx context.Context, businessID, name string, durationMinutes int, price string) (model.Service, error) {
	svc := model.Service{
		ID:              uuid.NewString(),
		BusinessID:      businessID,
		Name:            name,
		DurationMinutes: durationMinutes,
		Price:           price,
		Active:          true,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, business_id, name, duration_minutes, price, active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING created_at
	`, svc.ID, svc.BusinessID, svc.Name, svc.DurationMinutes, svc.Price).Scan(&svc.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return svc, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string, activeOnly bool) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price::text, active, created_at
		FROM services
		WHERE business_id = $1 AND (NOT $2 OR active)
		ORDER BY created_at DESC
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) DeactivateService(ctx context.Context, businessID, serviceID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services SET active = false
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ServiceDuration resolves a service's duration in minutes. An unknown
// service yields 0 with no error so callers can degrade instead of failing.
func (r *Repository) ServiceDuration(ctx context.Context, businessID, serviceID string) (int, error) {
	var mins int
	err := r.pool.QueryRow(ctx, `
		SELECT duration_minutes
		FROM services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID).Scan(&mins)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return mins, nil
}
