package repos

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/apierr"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a uniqueness constraint
// violation surfaced from the store, regardless of driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// classifyConflict re-raises a storage integrity violation as a typed
// domain error; anything else passes through untouched for the caller
// to wrap.
func classifyConflict(err error) error {
	if isUniqueViolation(err) {
		return apierr.StorageConflict(err)
	}
	return err
}
