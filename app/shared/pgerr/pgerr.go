// Package pgerr classifies Postgres driver errors by SQLSTATE.
package pgerr

import (
	"errors"

	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
)

// Code returns the SQLSTATE of err, or "" when err did not come from Postgres.
func Code(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

// Constraint returns the violated constraint name, if any.
func Constraint(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('n')
	}
	return ""
}

func IsUniqueViolation(err error) bool { return Code(err) == UniqueViolation }

func IsForeignKeyViolation(err error) bool { return Code(err) == ForeignKeyViolation }
