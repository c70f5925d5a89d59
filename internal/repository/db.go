package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"

	orderNumberConstraint = "orders_order_number_key"
)

// ErrOrderNumberTaken is returned by CreateIfAbsent when the generated order
// number collides with an existing one. Callers regenerate and retry.
var ErrOrderNumberTaken = errors.New("order number already in use")

// uniqueViolation returns the violated constraint name when err is a
// Postgres unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
