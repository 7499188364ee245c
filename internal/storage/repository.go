// Package storage implements the persistence ports over Postgres.
package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/slotline/slotline/internal/outbox"
	"github.com/slotline/slotline/libs/db"
)

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

// ErrInvalidTransition is returned when an owner-driven status change is not
// allowed from the appointment's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
