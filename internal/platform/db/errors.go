package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"evalhub/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNumericOutOfRange   = "22003"
)

// MapError converts pgx errors into domain errors. Context errors pass through.
func MapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return domain.NotFound(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return domain.Duplicate(entity, fmt.Sprintf("%s already exists", entity))
		case codeForeignKeyViolation:
			return &domain.Error{Kind: domain.ErrNotFound, Entity: entity, ID: id, Message: fmt.Sprintf("%s references a missing record", entity)}
		case codeCheckViolation:
			return domain.NewValidationError(pgErr.ConstraintName, pgErr.Message)
		case codeNumericOutOfRange:
			return domain.NewValidationError(entity, pgErr.Message)
		}
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}

// IsUniqueViolation reports whether err is a unique constraint failure, optionally on a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
