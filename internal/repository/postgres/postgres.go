package postgres

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"archowum/internal/repository"
)

// Package postgres contains PostgreSQL implementations of the repository
// interfaces. They use database/sql with parameterized queries and contain no
// business logic.

const uniqueViolationCode = "23505"

// IsNoRowsError reports whether err means the queried row does not exist.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// mapConstraintError translates a unique-constraint violation surfaced by the
// driver into repository.ErrDuplicate and passes every other error through.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return repository.ErrDuplicate
	}
	return err
}
