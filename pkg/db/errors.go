package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// constraintName is matched against the Postgres constraint; columns
// ("table.column") are matched against the sqlite message, which does not
// carry the index name. With no constraint and no columns any unique
// violation matches.
func IsUniqueViolation(err error, constraintName string, columns ...string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		if len(columns) == 0 && constraintName == "" {
			return true
		}
		for _, col := range columns {
			if strings.Contains(msg, col) {
				return true
			}
		}
		return constraintName != "" && strings.Contains(msg, constraintName)
	}

	if !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
