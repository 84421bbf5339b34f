package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err originates from a PostgreSQL
// unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// invalidTextRepresentation is the PostgreSQL SQLSTATE raised when a
// parameter cannot be cast to the column type, e.g. a non-UUID id.
const invalidTextRepresentation = "22P02"

// IsInvalidTextRepresentation reports whether err is a PostgreSQL cast
// failure for a query parameter. Such a value cannot match any row.
func IsInvalidTextRepresentation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
