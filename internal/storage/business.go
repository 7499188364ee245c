package storage

import (
	"context"

	"github.com/slotline/slotline/internal/model"
)

// Business fetches a tenant's display metadata, creating a default row on
// first touch.
func (r *Repository) Business(ctx context.Context, businessID string) (model.Business, error) {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO businesses (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, businessID); err != nil {
		return model.Business{}, err
	}

	var b model.Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, timezone
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(&b.ID, &b.Name, &b.Timezone)
	return b, err
}

func (r *Repository) UpdateBusiness(ctx context.Context, businessID, name, timezone string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO businesses (id, name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, businessID, name, timezone)
	return err
}
