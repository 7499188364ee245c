package storage

import (
	"context"

	"github.com/slotline/slotline/internal/model"
)

// WeeklyRules returns a business's working blocks for one weekday, in the
// order the owner saved them.
func (r *Repository) WeeklyRules(ctx context.Context, businessID string, weekday int) ([]model.WeeklyRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_id::text, weekday, start_minute, end_minute
		FROM weekly_rules
		WHERE business_id = $1 AND weekday = $2
		ORDER BY position ASC
	`, businessID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklyRule
	for rows.Next() {
		var wr model.WeeklyRule
		if err := rows.Scan(&wr.BusinessID, &wr.Weekday, &wr.StartMinute, &wr.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, wr)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListWeeklyRules returns the whole weekly schedule for a business.
func (r *Repository) ListWeeklyRules(ctx context.Context, businessID string) ([]model.WeeklyRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_id::text, weekday, start_minute, end_minute
		FROM weekly_rules
		WHERE business_id = $1
		ORDER BY weekday ASC, position ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklyRule
	for rows.Next() {
		var wr model.WeeklyRule
		if err := rows.Scan(&wr.BusinessID, &wr.Weekday, &wr.StartMinute, &wr.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, wr)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ReplaceWeeklyRules swaps the entire weekly schedule in one transaction:
// delete everything, reinsert what the owner saved. There is no rule-level
// versioning.
func (r *Repository) ReplaceWeeklyRules(ctx context.Context, businessID string, rules []model.WeeklyRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM weekly_rules WHERE business_id = $1
	`, businessID); err != nil {
		return err
	}
	for i, wr := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weekly_rules (business_id, weekday, start_minute, end_minute, position)
			VALUES ($1, $2, $3, $4, $5)
		`, businessID, wr.Weekday, wr.StartMinute, wr.EndMinute, i); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
